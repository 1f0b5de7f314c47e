package logic

import (
	"errors"
	"fmt"
)

// 引擎的类型化错误。任何被拒绝的操作都不改变实体状态，
// 调用方根据错误类型决定是否可以重试。
var (
	ErrRoundClosed            = errors.New("轮次不在进行中，无法接受捐款")
	ErrRoundOverlap           = errors.New("轮次时间窗口与已有轮次重叠")
	ErrRoundNotEnded          = errors.New("轮次尚未结束，提前分配需要显式强制")
	ErrRoundNotFound          = errors.New("轮次不存在")
	ErrPoolNotFound           = errors.New("资金池不存在")
	ErrPoolInactive           = errors.New("资金池未激活")
	ErrProjectNotFound        = errors.New("项目不存在")
	ErrProposalNotFound       = errors.New("提案不存在")
	ErrInvalidStateTransition = errors.New("提案状态不允许该操作")
	ErrDuplicateVote          = errors.New("同一提案不允许重复投票")
	ErrVotingClosed           = errors.New("投票窗口已过，等待关窗裁决")
	ErrNotEligibleVoter       = errors.New("仅项目捐款人可以投票")
	ErrProposalExists         = errors.New("该项目已有进行中的提案")
	ErrInsufficientBalance    = errors.New("项目可用余额不足")
)

// ValidationError 输入校验错误，在触达共享状态之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError 创建输入校验错误
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation 判断是否为输入校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
