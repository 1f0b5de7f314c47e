package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/model"
	"github.com/blues/qfs/internal/transfer"
	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	proposalLogic *logic.ProposalLogic
	voteLogic     *logic.VoteLogic
	dispatcher    *transfer.Dispatcher
}

func NewProposalHandler(proposalLogic *logic.ProposalLogic, voteLogic *logic.VoteLogic, dispatcher *transfer.Dispatcher) *ProposalHandler {
	return &ProposalHandler{
		proposalLogic: proposalLogic,
		voteLogic:     voteLogic,
		dispatcher:    dispatcher,
	}
}

// CreateProposal 创建提款提案
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	proposal := model.ProposalModel{
		ProjectId:    req.ProjectId,
		Amount:       req.Amount,
		TransferType: model.TransferType(req.TransferType),
		EvidenceRef:  req.EvidenceRef,
		MilestoneRef: req.MilestoneRef,
	}
	if err := h.proposalLogic.CreateProposal(&proposal); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "提案创建成功", proposal)
}

// GetProposal 获取提案详情
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	proposal, err := h.proposalLogic.GetProposal(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", proposal)
}

// SubmitAiScore 提交AI预审结果
func (h *ProposalHandler) SubmitAiScore(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	var req SubmitAiScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	proposal, err := h.proposalLogic.SubmitAiScore(id, req.Score, req.Notes)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "AI评分已记录", proposal)
}

// ResolveReview 人工复核裁决
func (h *ProposalHandler) ResolveReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	var req ResolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	proposal, err := h.proposalLogic.ResolveManualReview(id, req.Approve)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "复核完成", proposal)
}

// CastVote 投票
func (h *ProposalHandler) CastVote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	vote := model.VoteModel{
		ProposalId:   id,
		VoterAddress: req.VoterAddress,
		VoteType:     model.VoteType(req.VoteType),
		Comment:      req.Comment,
	}
	proposal, err := h.voteLogic.CastVote(&vote)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "投票成功", proposal)
}

// GetProposalVotes 获取提案投票记录与统计
func (h *ProposalHandler) GetProposalVotes(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	votes, tally, err := h.voteLogic.GetProposalVotes(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", ProposalVotesResponse{
		Votes: votes,
		Stats: ToVoteStatsResponse(tally),
	})
}

// CloseVoting 显式关闭投票
func (h *ProposalHandler) CloseVoting(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	proposal, err := h.voteLogic.CloseVoting(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "投票已关闭", proposal)
}

// ExecuteProposal 执行提案
// 重复调用是幂等的：转账已在途时直接返回已有记录并触发一次补派发，
// 幂等键保证网关侧不会产生第二笔真实转账。
func (h *ProposalHandler) ExecuteProposal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	t, _, err := h.proposalLogic.Execute(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	// 慢阶段异步执行，不在请求里等待外部结果
	if t.Status == model.TransferStatusInitiated {
		if err := h.dispatcher.Dispatch(*t); err != nil {
			HandleLogicError(c, err)
			return
		}
	}

	SuccessResponse(c, http.StatusOK, "转账已发起", ToTransferResponse(t))
}

// WithdrawProposal 提案人撤回提案
func (h *ProposalHandler) WithdrawProposal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的提案ID")
		return
	}

	proposal, err := h.proposalLogic.Withdraw(id)
	if err != nil {
		HandleLogicError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "提案已撤回", proposal)
}
