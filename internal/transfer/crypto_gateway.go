package transfer

import (
	"context"
	"math/big"

	"github.com/blues/qfs/internal/ethereum"
)

// CryptoGateway 链上转账网关，包装出款客户端实现 Gateway 接口
// 交易哈希即外部引用；终局性由确认区块数决定，发起后先回 pending。
type CryptoGateway struct {
	client *ethereum.Client
}

// NewCryptoGateway 创建链上网关
func NewCryptoGateway(client *ethereum.Client) *CryptoGateway {
	return &CryptoGateway{client: client}
}

// Transfer 发送链上转账
// 同一笔业务重试时上层传入相同的幂等键，但链上以 nonce 天然防重，
// 这里只在首次发起时被调用（在途记录存在时上层不会重复发起）。
func (g *CryptoGateway) Transfer(ctx context.Context, req Request) (*Result, error) {
	txHash, err := g.client.SendTransfer(ctx, req.Destination, big.NewInt(req.Amount))
	if err != nil {
		return nil, err
	}
	return &Result{Reference: txHash, Status: StatusPending}, nil
}

// QueryStatus 按交易哈希查询确认状态
func (g *CryptoGateway) QueryStatus(ctx context.Context, reference string) (*Result, error) {
	state, err := g.client.CheckTransfer(ctx, reference)
	if err != nil {
		return nil, err
	}
	switch state {
	case ethereum.TxStateConfirmed:
		return &Result{Reference: reference, Status: StatusCompleted}, nil
	case ethereum.TxStateReverted:
		return &Result{Reference: reference, Status: StatusFailed, Reason: "链上交易执行失败"}, nil
	default:
		return &Result{Reference: reference, Status: StatusPending}, nil
	}
}
