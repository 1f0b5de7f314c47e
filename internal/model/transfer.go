package model

import (
	"time"
)

// TransferModel 转账记录（只追加，每个提案至多一条非失败记录）
type TransferModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProposalId int64        `json:"proposal_id" gorm:"not null;index"`
	Type       TransferType `json:"type" gorm:"not null"`

	// 幂等键（由提案ID确定性派生，重试复用同一个键）
	IdempotencyKey string `json:"idempotency_key" gorm:"not null;uniqueIndex"`

	// 外部引用（银行流水号或链上交易哈希）
	ExternalReference string `json:"external_reference" gorm:"index"`

	Amount      int64  `json:"amount" gorm:"not null"`
	Destination string `json:"destination" gorm:"not null"`

	Status     TransferStatus `json:"status" gorm:"default:'initiated'"`
	FailReason string         `json:"fail_reason" gorm:"type:text"`

	// 已尝试次数（超出重试预算转入失败）
	Attempts int `json:"attempts" gorm:"default:0"`
}

// TransferStatus 转账状态
type TransferStatus string

const (
	TransferStatusInitiated TransferStatus = "initiated" // 已发起
	TransferStatusCompleted TransferStatus = "completed" // 已完成
	TransferStatusFailed    TransferStatus = "failed"    // 失败
)

// TableName 自定义表名
func (TransferModel) TableName() string {
	return "transfer"
}
