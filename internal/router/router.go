package router

import (
	"github.com/blues/qfs/internal/config"
	"github.com/blues/qfs/internal/handler"
	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/transfer"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, proposalLogic *logic.ProposalLogic, voteLogic *logic.VoteLogic,
	dispatcher *transfer.Dispatcher, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "qf-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 资金池相关路由
		poolHandler := handler.NewPoolHandler(db)
		pools := v1.Group("/pools")
		{
			pools.POST("", poolHandler.CreatePool)
			pools.GET("", poolHandler.GetPools)
			pools.GET("/:id", poolHandler.GetPool)
			pools.DELETE("/:id", poolHandler.DeactivatePool)
			pools.POST("/:id/funds", poolHandler.AddFunds)
			pools.POST("/:id/rounds", poolHandler.CreateRound)
			pools.GET("/:id/rounds/current", poolHandler.GetCurrentRound)
		}

		// 轮次相关路由
		roundHandler := handler.NewRoundHandler(db)
		rounds := v1.Group("/rounds")
		{
			rounds.GET("/:id", roundHandler.GetRound)
			rounds.POST("/:id/contributions", roundHandler.RecordContribution)
			rounds.POST("/:id/distribute", roundHandler.DistributeRound)
			rounds.GET("/:id/allocations", roundHandler.GetRoundAllocations)
			rounds.GET("/:id/stats", roundHandler.GetRoundStats)
		}

		// 项目相关路由
		projectHandler := handler.NewProjectHandler(db)
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/stats", projectHandler.GetProjectStats)
		}

		// 提案相关路由
		proposalHandler := handler.NewProposalHandler(proposalLogic, voteLogic, dispatcher)
		proposals := v1.Group("/proposals")
		{
			proposals.POST("", proposalHandler.CreateProposal)
			proposals.GET("/:id", proposalHandler.GetProposal)
			proposals.POST("/:id/ai-score", proposalHandler.SubmitAiScore)
			proposals.POST("/:id/review", proposalHandler.ResolveReview)
			proposals.POST("/:id/votes", proposalHandler.CastVote)
			proposals.GET("/:id/votes", proposalHandler.GetProposalVotes)
			proposals.POST("/:id/close-voting", proposalHandler.CloseVoting)
			proposals.POST("/:id/execute", proposalHandler.ExecuteProposal)
			proposals.POST("/:id/withdraw", proposalHandler.WithdrawProposal)
		}

		// 转账回调路由
		transferHandler := handler.NewTransferHandler(dispatcher)
		v1.POST("/transfers/webhook", transferHandler.HandleBankWebhook)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
