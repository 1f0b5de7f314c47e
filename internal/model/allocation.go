package model

import (
	"time"
)

// AllocationModel 配捐分配记录（只追加，每个轮次每个项目唯一）
type AllocationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	RoundId   int64 `json:"round_id" gorm:"not null;uniqueIndex:uk_round_project"`
	ProjectId int64 `json:"project_id" gorm:"not null;uniqueIndex:uk_round_project"`

	// 配捐金额（最小可转账单位）
	MatchedAmount int64 `json:"matched_amount" gorm:"not null"`

	// 计算时间
	ComputedAt time.Time `json:"computed_at" gorm:"not null"`
}

// TableName 自定义表名
func (AllocationModel) TableName() string {
	return "allocation"
}
