package handler

import (
	"errors"
	"net/http"

	"github.com/blues/qfs/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleLogicError 将引擎的类型化错误映射为HTTP状态码
func HandleLogicError(c *gin.Context, err error) {
	switch {
	case logic.IsValidation(err):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, logic.ErrPoolNotFound),
		errors.Is(err, logic.ErrRoundNotFound),
		errors.Is(err, logic.ErrProjectNotFound),
		errors.Is(err, logic.ErrProposalNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrRoundClosed),
		errors.Is(err, logic.ErrRoundNotEnded),
		errors.Is(err, logic.ErrRoundOverlap),
		errors.Is(err, logic.ErrPoolInactive),
		errors.Is(err, logic.ErrInvalidStateTransition),
		errors.Is(err, logic.ErrDuplicateVote),
		errors.Is(err, logic.ErrVotingClosed),
		errors.Is(err, logic.ErrNotEligibleVoter),
		errors.Is(err, logic.ErrProposalExists),
		errors.Is(err, logic.ErrInsufficientBalance):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
