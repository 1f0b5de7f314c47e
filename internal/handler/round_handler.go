package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RoundHandler struct {
	roundLogic  *logic.RoundLogic
	ledgerLogic *logic.LedgerLogic
}

func NewRoundHandler(db *gorm.DB) *RoundHandler {
	return &RoundHandler{
		roundLogic:  logic.NewRoundLogic(db),
		ledgerLogic: logic.NewLedgerLogic(db),
	}
}

// GetRound 获取轮次详情
func (h *RoundHandler) GetRound(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的轮次ID")
		return
	}

	round, err := h.roundLogic.GetRound(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", round)
}

// RecordContribution 记录捐款
func (h *RoundHandler) RecordContribution(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的轮次ID")
		return
	}

	var req RecordContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	contribution := model.ContributionModel{
		RoundId:             id,
		ProjectId:           req.ProjectId,
		ContributorAddress:  req.ContributorAddress,
		Amount:              req.Amount,
		IsQuadraticEligible: req.Eligible,
	}
	if err := h.roundLogic.RecordContribution(&contribution); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "捐款记录成功", contribution)
}

// DistributeRound 关闭并分配轮次
func (h *RoundHandler) DistributeRound(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的轮次ID")
		return
	}

	var req DistributeRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.roundLogic.CloseAndDistributeRound(id, req.CreateNewRound, req.Force)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "轮次分配完成", ToDistributeRoundResponse(result))
}

// GetRoundAllocations 获取轮次分配记录
func (h *RoundHandler) GetRoundAllocations(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的轮次ID")
		return
	}

	allocations, err := h.roundLogic.GetRoundAllocations(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", ToAllocationResponseList(allocations))
}

// GetRoundStats 获取轮次捐款统计
func (h *RoundHandler) GetRoundStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的轮次ID")
		return
	}

	stats, err := h.ledgerLogic.GetRoundContributionStats(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", stats)
}
