package model

import (
	"time"
)

// ProposalModel 提款提案模型
type ProposalModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64 `json:"project_id" gorm:"not null;index"`

	// 提款信息
	Amount       int64        `json:"amount" gorm:"not null"`
	TransferType TransferType `json:"transfer_type" gorm:"not null"`

	// 证明材料与里程碑引用（外部存储，仅保存引用）
	EvidenceRef  string  `json:"evidence_ref" gorm:"type:text"`
	MilestoneRef *string `json:"milestone_ref"`

	// AI 预审结果（0-100，未评分时为空，区分"未知"与"零分"）
	AiScore *int   `json:"ai_score"`
	AiNotes string `json:"ai_notes" gorm:"type:text"`

	// 投票截止时间（进入捐款人投票阶段时设置）
	VotingEndTime *time.Time `json:"voting_end_time"`

	// 状态机
	Status ProposalStatus `json:"status" gorm:"default:'pending_verification'"`
}

// ProposalStatus 提案状态
type ProposalStatus string

const (
	ProposalStatusPendingVerification   ProposalStatus = "pending_verification"   // 待AI预审
	ProposalStatusManualReview          ProposalStatus = "manual_review"          // 待人工复核
	ProposalStatusPendingDonorApproval  ProposalStatus = "pending_donor_approval" // 捐款人投票中
	ProposalStatusApproved              ProposalStatus = "approved"               // 投票通过，待执行
	ProposalStatusTransferInitiated     ProposalStatus = "transfer_initiated"     // 转账已发起
	ProposalStatusCompleted             ProposalStatus = "completed"              // 已完成（终态）
	ProposalStatusProcessingError       ProposalStatus = "processing_error"       // 转账失败，需人工介入（终态）
	ProposalStatusRejected              ProposalStatus = "rejected"               // 已拒绝（终态）
	ProposalStatusWithdrawn             ProposalStatus = "withdrawn"              // 提案人撤回（终态）
)

// TableName 自定义表名
func (ProposalModel) TableName() string {
	return "proposal"
}

// IsTerminal 判断是否为终态
func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case ProposalStatusCompleted, ProposalStatusProcessingError,
		ProposalStatusRejected, ProposalStatusWithdrawn:
		return true
	}
	return false
}

// TransferType 转账方式
type TransferType string

const (
	TransferTypeBank   TransferType = "bank"   // 银行转账
	TransferTypeCrypto TransferType = "crypto" // 链上转账
)
