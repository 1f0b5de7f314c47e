package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PoolHandler struct {
	poolLogic  *logic.PoolLogic
	roundLogic *logic.RoundLogic
}

func NewPoolHandler(db *gorm.DB) *PoolHandler {
	return &PoolHandler{
		poolLogic:  logic.NewPoolLogic(db),
		roundLogic: logic.NewRoundLogic(db),
	}
}

// CreatePool 创建资金池
func (h *PoolHandler) CreatePool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	pool := model.PoolModel{
		Name:           req.Name,
		Theme:          req.Theme,
		Description:    req.Description,
		SponsorAddress: req.SponsorAddress,
		SponsorName:    req.SponsorName,
	}
	if err := h.poolLogic.CreatePool(&pool); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "资金池创建成功", pool)
}

// GetPools 获取资金池列表
func (h *PoolHandler) GetPools(c *gin.Context) {
	pools, err := h.poolLogic.GetPools()
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", pools)
}

// GetPool 获取资金池详情
func (h *PoolHandler) GetPool(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的资金池ID")
		return
	}

	pool, err := h.poolLogic.GetPool(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", pool)
}

// AddFunds 注入赞助资金
func (h *PoolHandler) AddFunds(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的资金池ID")
		return
	}

	var req AddFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	pool, err := h.poolLogic.AddFunds(id, req.Amount)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "注资成功", pool)
}

// DeactivatePool 停用资金池
func (h *PoolHandler) DeactivatePool(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的资金池ID")
		return
	}

	if err := h.poolLogic.DeactivatePool(id); err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "资金池已停用", nil)
}

// CreateRound 在资金池下创建轮次
func (h *PoolHandler) CreateRound(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的资金池ID")
		return
	}

	var req CreateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	round := model.RoundModel{
		PoolId:             id,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		MatchingPoolAmount: req.MatchingPoolAmount,
	}
	if err := h.roundLogic.CreateRound(&round); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "轮次创建成功", round)
}

// GetCurrentRound 获取资金池当前轮次
func (h *PoolHandler) GetCurrentRound(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的资金池ID")
		return
	}

	round, err := h.roundLogic.GetCurrentRound(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", round)
}
