package transfer

import (
	"context"
	"fmt"
)

// 外部转账协作方的窄接口。银行与链上两种通道都实现同一组语义：
// 发起时携带幂等键，网关保证同一个键不会产生第二笔真实转账。

// Status 网关侧的转账状态
type Status string

const (
	StatusPending   Status = "pending"   // 网关已受理，结果未定
	StatusCompleted Status = "completed" // 已到账
	StatusFailed    Status = "failed"    // 终态失败
)

// Request 转账请求
type Request struct {
	IdempotencyKey string // 幂等键，重试时必须复用
	Destination    string // 银行账户或链上地址
	Amount         int64  // 最小可转账单位
}

// Result 网关返回结果
type Result struct {
	Reference string // 外部引用（银行流水号或交易哈希）
	Status    Status
	Reason    string // 失败原因
}

// Gateway 转账网关
type Gateway interface {
	// Transfer 发起转账，调用方负责设置超时
	Transfer(ctx context.Context, req Request) (*Result, error)
	// QueryStatus 按外部引用查询转账状态
	QueryStatus(ctx context.Context, reference string) (*Result, error)
}

// PermanentError 网关报告的终态失败，不应继续重试
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("转账终态失败: %s", e.Reason)
}
