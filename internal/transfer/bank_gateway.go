package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blues/qfs/internal/config"
)

// BankGateway 银行转账网关客户端
// 结果可能是受理中，最终状态通过 webhook 或轮询对账回填。
type BankGateway struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

// NewBankGateway 创建银行网关客户端
func NewBankGateway(cfg config.BankConfig) *BankGateway {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BankGateway{
		baseUrl:    cfg.BaseUrl,
		apiKey:     cfg.ApiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type bankTransferRequest struct {
	IdempotencyKey     string `json:"idempotency_key"`
	DestinationAccount string `json:"destination_account"`
	Amount             int64  `json:"amount"`
}

type bankTransferResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// Transfer 发起银行转账
func (g *BankGateway) Transfer(ctx context.Context, req Request) (*Result, error) {
	payload := bankTransferRequest{
		IdempotencyKey:     req.IdempotencyKey,
		DestinationAccount: req.Destination,
		Amount:             req.Amount,
	}
	resp, err := g.post(ctx, "/v1/transfers", payload)
	if err != nil {
		return nil, err
	}
	return g.toResult(resp)
}

// QueryStatus 查询银行转账状态
func (g *BankGateway) QueryStatus(ctx context.Context, reference string) (*Result, error) {
	url := fmt.Sprintf("%s/v1/transfers/%s", g.baseUrl, reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var resp bankTransferResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("解析银行网关响应失败: %w", err)
	}
	return g.toResult(&resp)
}

func (g *BankGateway) post(ctx context.Context, path string, payload interface{}) (*bankTransferResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseUrl+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("银行网关暂时不可用: %d", httpResp.StatusCode)
	}

	var resp bankTransferResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("解析银行网关响应失败: %w", err)
	}

	// 4xx 属于终态拒绝
	if httpResp.StatusCode >= 400 {
		return nil, &PermanentError{Reason: resp.Reason}
	}
	return &resp, nil
}

func (g *BankGateway) toResult(resp *bankTransferResponse) (*Result, error) {
	switch resp.Status {
	case "completed":
		return &Result{Reference: resp.Reference, Status: StatusCompleted}, nil
	case "failed":
		return &Result{Reference: resp.Reference, Status: StatusFailed, Reason: resp.Reason}, nil
	default:
		return &Result{Reference: resp.Reference, Status: StatusPending}, nil
	}
}
