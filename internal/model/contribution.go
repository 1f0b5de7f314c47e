package model

import (
	"time"
)

// ContributionModel 捐款记录（只追加，写入后不可修改或删除）
type ContributionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	RoundId   int64 `json:"round_id" gorm:"not null;index"`
	ProjectId int64 `json:"project_id" gorm:"not null;index"`

	// 捐款人地址（外部录入的捐款可为空）
	ContributorAddress *string `json:"contributor_address" gorm:"index"`

	// 金额（最小可转账单位，必须大于0）
	Amount int64 `json:"amount" gorm:"not null"`

	// 二次方配捐资格（仅身份验证通过的捐款人参与配捐计算）
	IsQuadraticEligible bool `json:"is_quadratic_eligible" gorm:"default:false"`
}

// TableName 自定义表名
func (ContributionModel) TableName() string {
	return "contribution"
}
