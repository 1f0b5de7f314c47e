package handler

import (
	"errors"
	"net/http"

	"github.com/blues/qfs/internal/transfer"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TransferHandler struct {
	dispatcher *transfer.Dispatcher
}

func NewTransferHandler(dispatcher *transfer.Dispatcher) *TransferHandler {
	return &TransferHandler{dispatcher: dispatcher}
}

// HandleBankWebhook 接收银行网关的异步状态回调
func (h *TransferHandler) HandleBankWebhook(c *gin.Context) {
	var req TransferWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.dispatcher.HandleStatusUpdate(req.Reference, transfer.Status(req.Status), req.Reason)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponse(c, http.StatusNotFound, "转账记录不存在")
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "回调处理成功", gin.H{"reference": req.Reference})
}
