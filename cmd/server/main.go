package main

import (
	"time"

	"github.com/blues/qfs/internal/config"
	"github.com/blues/qfs/internal/ethereum"
	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/repository"
	"github.com/blues/qfs/internal/router"
	"github.com/blues/qfs/internal/task"
	"github.com/blues/qfs/internal/transfer"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	logger.Init(cfg.Log)

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化链上客户端
	ethClient, err := ethereum.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize ethereum client: %v", err)
	}

	// 初始化转账派发器
	dispatcher, err := transfer.NewDispatcher(db,
		transfer.NewBankGateway(cfg.Bank),
		transfer.NewCryptoGateway(ethClient),
		transfer.Options{
			PoolSize:    cfg.Governance.DispatchPoolSize,
			CallTimeout: time.Duration(cfg.Governance.TransferTimeout) * time.Second,
			MaxAttempts: cfg.Governance.TransferMaxAttempts,
		})
	if err != nil {
		logger.Fatal("Failed to initialize transfer dispatcher: %v", err)
	}
	defer dispatcher.Release()

	// 治理参数
	proposalLogic := logic.NewProposalLogic(db, logic.GovernancePolicy{
		AiApproveThreshold: cfg.Governance.AiApproveThreshold,
		AiReviewThreshold:  cfg.Governance.AiReviewThreshold,
		VotingPeriod:       time.Duration(cfg.Governance.VotingPeriodHours) * time.Hour,
	})
	voteLogic := logic.NewVoteLogic(db, logic.QuorumConfig{
		ApproveRatio:     cfg.Governance.ApproveRatio,
		MinParticipation: cfg.Governance.MinParticipation,
	})

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, proposalLogic, voteLogic, dispatcher, cfg)

	// 启动定时任务
	manager := task.Start(db, dispatcher, voteLogic, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
