package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{
		projectLogic: logic.NewProjectLogic(db),
	}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	project := model.ProjectModel{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		PoolId:         req.PoolId,
		CharityAddress: req.CharityAddress,
		CharityName:    req.CharityName,
		FundingGoal:    req.FundingGoal,
		WalletAddress:  req.WalletAddress,
		BankAccount:    req.BankAccount,
	}
	if err := h.projectLogic.CreateProject(&project); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", project)
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	var poolId *int64
	if raw := c.Query("pool_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "无效的资金池ID")
			return
		}
		poolId = &id
	}

	projects, err := h.projectLogic.GetProjects(poolId)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", projects)
}

// GetProject 获取项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	project, err := h.projectLogic.GetProject(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", project)
}

// GetProjectStats 获取项目统计信息
func (h *ProjectHandler) GetProjectStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	stats, err := h.projectLogic.GetProjectStats(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", stats)
}
