package handler

import (
	"time"

	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/model"
	"github.com/shopspring/decimal"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 请求模型（边界上完成校验，引擎只接受完整类型）

// CreatePoolRequest 创建资金池请求
type CreatePoolRequest struct {
	Name           string `json:"name" binding:"required"`
	Theme          string `json:"theme"`
	Description    string `json:"description"`
	SponsorAddress string `json:"sponsor_address" binding:"required"`
	SponsorName    string `json:"sponsor_name"`
}

// AddFundsRequest 注资请求
type AddFundsRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// CreateRoundRequest 创建轮次请求
type CreateRoundRequest struct {
	StartTime          time.Time `json:"start_time" binding:"required"`
	EndTime            time.Time `json:"end_time" binding:"required"`
	MatchingPoolAmount int64     `json:"matching_pool_amount"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	PoolId         *int64 `json:"pool_id"`
	CharityAddress string `json:"charity_address" binding:"required"`
	CharityName    string `json:"charity_name"`
	FundingGoal    int64  `json:"funding_goal"`
	WalletAddress  string `json:"wallet_address"`
	BankAccount    string `json:"bank_account"`
}

// RecordContributionRequest 记录捐款请求
type RecordContributionRequest struct {
	ProjectId          int64   `json:"project_id" binding:"required"`
	ContributorAddress *string `json:"contributor_address"`
	Amount             int64   `json:"amount" binding:"required,gt=0"`
	Eligible           bool    `json:"eligible"`
}

// DistributeRoundRequest 轮次分配请求
type DistributeRoundRequest struct {
	CreateNewRound bool `json:"create_new_round"`
	Force          bool `json:"force"`
}

// CreateProposalRequest 创建提案请求
type CreateProposalRequest struct {
	ProjectId    int64   `json:"project_id" binding:"required"`
	Amount       int64   `json:"amount" binding:"required,gt=0"`
	TransferType string  `json:"transfer_type" binding:"required,oneof=bank crypto"`
	EvidenceRef  string  `json:"evidence_ref"`
	MilestoneRef *string `json:"milestone_ref"`
}

// SubmitAiScoreRequest 提交AI评分请求
type SubmitAiScoreRequest struct {
	Score int    `json:"score" binding:"min=0,max=100"`
	Notes string `json:"notes"`
}

// ResolveReviewRequest 人工复核裁决请求
type ResolveReviewRequest struct {
	Approve bool `json:"approve"`
}

// CastVoteRequest 投票请求
type CastVoteRequest struct {
	VoterAddress string `json:"voter_address" binding:"required"`
	VoteType     string `json:"vote_type" binding:"required,oneof=yes no abstain"`
	Comment      string `json:"comment"`
}

// TransferWebhookRequest 银行转账异步回调
type TransferWebhookRequest struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=pending completed failed"`
	Reason    string `json:"reason"`
}

// 响应模型

// AllocationResponse 配捐分配响应
type AllocationResponse struct {
	Id            int64     `json:"id"`
	RoundId       int64     `json:"roundId"`
	ProjectId     int64     `json:"projectId"`
	MatchedAmount int64     `json:"matchedAmount"`
	ComputedAt    time.Time `json:"computedAt"`
}

// DistributeRoundResponse 轮次分配响应
type DistributeRoundResponse struct {
	RoundId            int64                `json:"roundId"`
	Allocations        []AllocationResponse `json:"allocations"`
	Early              bool                 `json:"early"`
	AlreadyDistributed bool                 `json:"alreadyDistributed"`
	NewRoundId         *int64               `json:"newRoundId,omitempty"`
	Warning            string               `json:"warning,omitempty"`
}

// VoteStatsResponse 计票统计响应
type VoteStatsResponse struct {
	Yes           int64           `json:"yes"`
	No            int64           `json:"no"`
	Abstain       int64           `json:"abstain"`
	Participation int64           `json:"participation"`
	YesPercentage decimal.Decimal `json:"yesPercentage"`
}

// ProposalVotesResponse 提案投票响应
type ProposalVotesResponse struct {
	Votes []model.VoteModel `json:"votes"`
	Stats VoteStatsResponse `json:"stats"`
}

// TransferResponse 转账响应
type TransferResponse struct {
	Id                int64  `json:"id"`
	ProposalId        int64  `json:"proposalId"`
	Type              string `json:"type"`
	IdempotencyKey    string `json:"idempotencyKey"`
	ExternalReference string `json:"externalReference"`
	Amount            int64  `json:"amount"`
	Status            string `json:"status"`
	FailReason        string `json:"failReason,omitempty"`
}

// 转换函数

// ToAllocationResponse 将分配模型转换为响应模型
func ToAllocationResponse(a *model.AllocationModel) AllocationResponse {
	return AllocationResponse{
		Id:            a.Id,
		RoundId:       a.RoundId,
		ProjectId:     a.ProjectId,
		MatchedAmount: a.MatchedAmount,
		ComputedAt:    a.ComputedAt,
	}
}

// ToAllocationResponseList 将分配模型列表转换为响应模型列表
func ToAllocationResponseList(allocations []model.AllocationModel) []AllocationResponse {
	result := make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		result[i] = ToAllocationResponse(&a)
	}
	return result
}

// ToDistributeRoundResponse 将分配结果转换为响应模型
func ToDistributeRoundResponse(r *logic.DistributeResult) DistributeRoundResponse {
	resp := DistributeRoundResponse{
		RoundId:            r.Round.Id,
		Allocations:        ToAllocationResponseList(r.Allocations),
		Early:              r.Early,
		AlreadyDistributed: r.AlreadyDistributed,
	}
	if r.NewRound != nil {
		resp.NewRoundId = &r.NewRound.Id
	}
	if r.Early {
		resp.Warning = "轮次在结束时间之前被强制分配"
	}
	return resp
}

// ToVoteStatsResponse 将计票结果转换为响应模型
func ToVoteStatsResponse(t *logic.Tally) VoteStatsResponse {
	return VoteStatsResponse{
		Yes:           t.Yes,
		No:            t.No,
		Abstain:       t.Abstain,
		Participation: t.Participation,
		YesPercentage: t.YesPercentage,
	}
}

// ToTransferResponse 将转账模型转换为响应模型
func ToTransferResponse(t *model.TransferModel) TransferResponse {
	return TransferResponse{
		Id:                t.Id,
		ProposalId:        t.ProposalId,
		Type:              string(t.Type),
		IdempotencyKey:    t.IdempotencyKey,
		ExternalReference: t.ExternalReference,
		Amount:            t.Amount,
		Status:            string(t.Status),
		FailReason:        t.FailReason,
	}
}
