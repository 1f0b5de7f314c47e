package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// transferNamespace 幂等键命名空间，提案ID在其下确定性派生出 UUID
var transferNamespace = uuid.MustParse("7b1f0e52-9c4d-4a8e-b1a3-5d2f8c6e4a90")

// GovernancePolicy 提案治理参数
type GovernancePolicy struct {
	AiApproveThreshold int           // AI评分达到该值自动进入投票
	AiReviewThreshold  int           // 低于该值直接拒绝，处于两者之间转人工复核
	VotingPeriod       time.Duration // 投票窗口时长
}

// ProposalLogic 提案生命周期业务逻辑
// 状态机的每一次迁移都以带状态条件的 UPDATE 落库，
// 非法迁移返回 ErrInvalidStateTransition 且不产生任何副作用。
type ProposalLogic struct {
	db     *gorm.DB
	ledger *LedgerLogic
	policy GovernancePolicy
}

// NewProposalLogic 创建提案业务逻辑
func NewProposalLogic(db *gorm.DB, policy GovernancePolicy) *ProposalLogic {
	return &ProposalLogic{
		db:     db,
		ledger: NewLedgerLogic(db),
		policy: policy,
	}
}

// TransferIdempotencyKey 派生提案的转账幂等键
// 同一提案无论重试多少次，拿到的键都相同。
func TransferIdempotencyKey(proposalId int64) string {
	return uuid.NewSHA1(transferNamespace, []byte(fmt.Sprintf("proposal-%d", proposalId))).String()
}

// CreateProposal 创建提款提案
func (p *ProposalLogic) CreateProposal(proposal *model.ProposalModel) error {
	if proposal.Amount <= 0 {
		return NewValidationError("amount", "提款金额必须大于0")
	}
	switch proposal.TransferType {
	case model.TransferTypeBank, model.TransferTypeCrypto:
	default:
		return NewValidationError("transfer_type", "转账方式必须是 bank 或 crypto")
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		var project model.ProjectModel
		if err := tx.First(&project, proposal.ProjectId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}

		// 收款方式必须在项目上配置好
		if proposal.TransferType == model.TransferTypeBank && project.BankAccount == "" {
			return NewValidationError("transfer_type", "项目未配置银行收款账户")
		}
		if proposal.TransferType == model.TransferTypeCrypto && project.WalletAddress == "" {
			return NewValidationError("transfer_type", "项目未配置收款钱包地址")
		}

		// 每个项目同时只允许一个非终态提案
		var active int64
		err := tx.Model(&model.ProposalModel{}).
			Where("project_id = ? AND status NOT IN ?", proposal.ProjectId, []model.ProposalStatus{
				model.ProposalStatusCompleted,
				model.ProposalStatusProcessingError,
				model.ProposalStatusRejected,
				model.ProposalStatusWithdrawn,
			}).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrProposalExists
		}

		// 提款不得超过账本可用余额
		balance, err := p.ledger.GetProjectBalanceTx(tx, proposal.ProjectId)
		if err != nil {
			return err
		}
		if proposal.Amount > balance.Available {
			return ErrInsufficientBalance
		}

		proposal.Status = model.ProposalStatusPendingVerification
		proposal.AiScore = nil
		proposal.VotingEndTime = nil

		return tx.Create(proposal).Error
	})
}

// GetProposal 获取提案详情
func (p *ProposalLogic) GetProposal(id int64) (*model.ProposalModel, error) {
	var proposal model.ProposalModel
	if err := p.db.First(&proposal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

// SubmitAiScore 提交AI预审结果
// 阈值带：达到通过线进入捐款人投票；低于复核线直接拒绝；
// 两者之间是显式的人工复核状态，不会被静默当作拒绝。
func (p *ProposalLogic) SubmitAiScore(proposalId int64, score int, notes string) (*model.ProposalModel, error) {
	if score < 0 || score > 100 {
		return nil, NewValidationError("score", "AI评分必须在0-100之间")
	}

	var proposal model.ProposalModel
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := withRowLock(tx).First(&proposal, proposalId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProposalNotFound
			}
			return err
		}
		if proposal.Status != model.ProposalStatusPendingVerification {
			return ErrInvalidStateTransition
		}

		var next model.ProposalStatus
		updates := map[string]interface{}{
			"ai_score": score,
			"ai_notes": notes,
		}
		switch {
		case score >= p.policy.AiApproveThreshold:
			next = model.ProposalStatusPendingDonorApproval
			votingEnd := time.Now().Add(p.policy.VotingPeriod)
			updates["voting_end_time"] = &votingEnd
			proposal.VotingEndTime = &votingEnd
		case score < p.policy.AiReviewThreshold:
			next = model.ProposalStatusRejected
		default:
			next = model.ProposalStatusManualReview
		}
		updates["status"] = next

		res := tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status = ?", proposalId, model.ProposalStatusPendingVerification).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		proposal.Status = next
		proposal.AiScore = &score
		proposal.AiNotes = notes
		logger.Info("Proposal %d scored %d: status=%s", proposalId, score, next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ResolveManualReview 人工复核裁决
func (p *ProposalLogic) ResolveManualReview(proposalId int64, approve bool) (*model.ProposalModel, error) {
	next := model.ProposalStatusRejected
	var votingEnd *time.Time
	if approve {
		next = model.ProposalStatusPendingDonorApproval
		t := time.Now().Add(p.policy.VotingPeriod)
		votingEnd = &t
	}

	var proposal model.ProposalModel
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, proposalId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProposalNotFound
			}
			return err
		}

		updates := map[string]interface{}{"status": next}
		if votingEnd != nil {
			updates["voting_end_time"] = votingEnd
		}
		res := tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status = ?", proposalId, model.ProposalStatusManualReview).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		proposal.Status = next
		proposal.VotingEndTime = votingEnd
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// Withdraw 提案人撤回
// 只允许在AI预审、人工复核、投票中三个状态撤回；
// 转账一旦发起必须走完成或失败，不可撤回。
func (p *ProposalLogic) Withdraw(proposalId int64) (*model.ProposalModel, error) {
	var proposal model.ProposalModel
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, proposalId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProposalNotFound
			}
			return err
		}

		res := tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status IN ?", proposalId, []model.ProposalStatus{
				model.ProposalStatusPendingVerification,
				model.ProposalStatusManualReview,
				model.ProposalStatusPendingDonorApproval,
			}).
			Update("status", model.ProposalStatusWithdrawn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		proposal.Status = model.ProposalStatusWithdrawn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// Execute 执行提案（快阶段）
// 带状态条件的 UPDATE 保证并发执行只有一个赢家：赢家创建唯一的转账记录，
// 输家直接拿到已有记录返回，不产生第二笔真实转账。
// 返回值 created 标记本次调用是否真正发起了转账。
func (p *ProposalLogic) Execute(proposalId int64) (*model.TransferModel, bool, error) {
	var transfer model.TransferModel
	created := false

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var proposal model.ProposalModel
		if err := tx.First(&proposal, proposalId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProposalNotFound
			}
			return err
		}

		// 快阶段的临界区：approved -> transfer_initiated
		res := tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status = ?", proposalId, model.ProposalStatusApproved).
			Update("status", model.ProposalStatusTransferInitiated)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// 没抢到迁移：重读当前状态（并发执行时另一个调用已抢先提交）
			if err := tx.First(&proposal, proposalId).Error; err != nil {
				return err
			}
			// 转账已在途或已完成时幂等返回已有记录
			switch proposal.Status {
			case model.ProposalStatusTransferInitiated, model.ProposalStatusCompleted:
				err := tx.Where("proposal_id = ? AND status <> ?",
					proposalId, model.TransferStatusFailed).
					First(&transfer).Error
				if err != nil {
					return fmt.Errorf("提案 %d 缺少在途转账记录: %w", proposalId, err)
				}
				return nil
			default:
				return ErrInvalidStateTransition
			}
		}

		var project model.ProjectModel
		if err := tx.First(&project, proposal.ProjectId).Error; err != nil {
			return err
		}
		destination := project.BankAccount
		if proposal.TransferType == model.TransferTypeCrypto {
			destination = project.WalletAddress
		}

		transfer = model.TransferModel{
			ProposalId:     proposalId,
			Type:           proposal.TransferType,
			IdempotencyKey: TransferIdempotencyKey(proposalId),
			Amount:         proposal.Amount,
			Destination:    destination,
			Status:         model.TransferStatusInitiated,
		}
		if err := tx.Create(&transfer).Error; err != nil {
			return err
		}
		created = true
		logger.Info("Proposal %d execution initiated, transfer %d key=%s",
			proposalId, transfer.Id, transfer.IdempotencyKey)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &transfer, created, nil
}
