package logic

import (
	"errors"
	"strings"
	"time"

	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuorumConfig 法定人数规则
type QuorumConfig struct {
	ApproveRatio     float64 // 赞成比例阈值，yes/(yes+no) 达到即通过
	MinParticipation int64   // 最低参与票数，未达到前提案保持投票中
}

// VoteLogic 投票与计票业务逻辑
// 计票永远是对当前投票集合的全量重算，不维护可能漂移的增量计数器。
type VoteLogic struct {
	db     *gorm.DB
	ledger *LedgerLogic
	quorum QuorumConfig
}

// NewVoteLogic 创建投票业务逻辑
func NewVoteLogic(db *gorm.DB, quorum QuorumConfig) *VoteLogic {
	return &VoteLogic{
		db:     db,
		ledger: NewLedgerLogic(db),
		quorum: quorum,
	}
}

// Tally 计票结果
type Tally struct {
	Yes           int64           `json:"yes"`
	No            int64           `json:"no"`
	Abstain       int64           `json:"abstain"`
	Participation int64           `json:"participation"`
	YesPercentage decimal.Decimal `json:"yes_percentage"`
}

// ComputeTally 全量计票
// 弃权计入参与度但不参与比例计算。
func (v *VoteLogic) ComputeTally(tx *gorm.DB, proposalId int64) (*Tally, error) {
	var rows []struct {
		VoteType model.VoteType
		Count    int64
	}
	err := tx.Model(&model.VoteModel{}).
		Select("vote_type, COUNT(*) as count").
		Where("proposal_id = ?", proposalId).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	tally := &Tally{}
	for _, row := range rows {
		switch row.VoteType {
		case model.VoteTypeYes:
			tally.Yes = row.Count
		case model.VoteTypeNo:
			tally.No = row.Count
		case model.VoteTypeAbstain:
			tally.Abstain = row.Count
		}
	}
	tally.Participation = tally.Yes + tally.No + tally.Abstain

	if decided := tally.Yes + tally.No; decided > 0 {
		tally.YesPercentage = decimal.NewFromInt(tally.Yes).
			Div(decimal.NewFromInt(decided)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return tally, nil
}

// reachesApproval 判断是否满足通过条件
func (v *VoteLogic) reachesApproval(tally *Tally) bool {
	if tally.Participation < v.quorum.MinParticipation {
		return false
	}
	decided := tally.Yes + tally.No
	if decided == 0 {
		return false
	}
	ratio := decimal.NewFromInt(tally.Yes).Div(decimal.NewFromInt(decided))
	return ratio.GreaterThanOrEqual(decimal.NewFromFloat(v.quorum.ApproveRatio))
}

// CastVote 投票
// 资格：对提案项目有至少一笔捐款；每个提案每人一票（唯一约束兜底）。
// 每次投票后重算计票，满足法定人数与比例即把提案转为通过。
func (v *VoteLogic) CastVote(vote *model.VoteModel) (*model.ProposalModel, error) {
	if vote.VoterAddress == "" {
		return nil, NewValidationError("voter_address", "投票人地址不能为空")
	}
	switch vote.VoteType {
	case model.VoteTypeYes, model.VoteTypeNo, model.VoteTypeAbstain:
	default:
		return nil, NewValidationError("vote_type", "投票类型必须是 yes/no/abstain")
	}

	var proposal model.ProposalModel
	err := v.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, vote.ProposalId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProposalNotFound
			}
			return err
		}
		if proposal.Status != model.ProposalStatusPendingDonorApproval {
			return ErrInvalidStateTransition
		}
		// 截止时间之后的票不收，终局留给关窗裁决
		if proposal.VotingEndTime != nil && time.Now().After(*proposal.VotingEndTime) {
			return ErrVotingClosed
		}

		// 投票资格：项目捐款人
		var contributed int64
		err := tx.Model(&model.ContributionModel{}).
			Where("project_id = ? AND contributor_address = ?",
				proposal.ProjectId, vote.VoterAddress).
			Count(&contributed).Error
		if err != nil {
			return err
		}
		if contributed == 0 {
			return ErrNotEligibleVoter
		}

		// 一人一票，先查后插，唯一索引兜底并发竞争
		var existing int64
		err = tx.Model(&model.VoteModel{}).
			Where("proposal_id = ? AND voter_address = ?", vote.ProposalId, vote.VoterAddress).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateVote
		}

		if err := tx.Create(vote).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateVote
			}
			return err
		}

		// 全量重算，满足条件则转为通过
		tally, err := v.ComputeTally(tx, vote.ProposalId)
		if err != nil {
			return err
		}
		if v.reachesApproval(tally) {
			res := tx.Model(&model.ProposalModel{}).
				Where("id = ? AND status = ?", vote.ProposalId, model.ProposalStatusPendingDonorApproval).
				Update("status", model.ProposalStatusApproved)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				proposal.Status = model.ProposalStatusApproved
				logger.Info("Proposal %d approved by donor vote: yes=%d no=%d abstain=%d",
					proposal.Id, tally.Yes, tally.No, tally.Abstain)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// CloseVoting 显式关闭投票并裁决
// 参与度达标时按比例裁决，否则视为未获支持，提案拒绝。
func (v *VoteLogic) CloseVoting(proposalId int64) (*model.ProposalModel, error) {
	var proposal model.ProposalModel
	err := v.db.Transaction(func(tx *gorm.DB) error {
		if err := withRowLock(tx).First(&proposal, proposalId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProposalNotFound
			}
			return err
		}
		if proposal.Status != model.ProposalStatusPendingDonorApproval {
			return ErrInvalidStateTransition
		}

		tally, err := v.ComputeTally(tx, proposalId)
		if err != nil {
			return err
		}

		next := model.ProposalStatusRejected
		if v.reachesApproval(tally) {
			next = model.ProposalStatusApproved
		}

		res := tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status = ?", proposalId, model.ProposalStatusPendingDonorApproval).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		proposal.Status = next
		logger.Info("Voting closed for proposal %d: result=%s yes=%d no=%d participation=%d",
			proposalId, next, tally.Yes, tally.No, tally.Participation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// GetProposalVotes 获取提案投票记录与统计
func (v *VoteLogic) GetProposalVotes(proposalId int64) ([]model.VoteModel, *Tally, error) {
	var proposal model.ProposalModel
	if err := v.db.First(&proposal, proposalId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProposalNotFound
		}
		return nil, nil, err
	}

	var votes []model.VoteModel
	if err := v.db.Where("proposal_id = ?", proposalId).
		Order("created_at ASC").Find(&votes).Error; err != nil {
		return nil, nil, err
	}

	tally, err := v.ComputeTally(v.db, proposalId)
	if err != nil {
		return nil, nil, err
	}
	return votes, tally, nil
}

// FindExpiredVoting 查找投票窗口已过的提案
func (v *VoteLogic) FindExpiredVoting() ([]model.ProposalModel, error) {
	var proposals []model.ProposalModel
	err := v.db.Where("status = ? AND voting_end_time IS NOT NULL AND voting_end_time <= ?",
		model.ProposalStatusPendingDonorApproval, time.Now()).
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// isUniqueViolation 识别唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
