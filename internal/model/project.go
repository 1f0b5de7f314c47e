package model

import (
	"time"
)

// ProjectModel 慈善项目模型
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category"`

	// 归属（项目可选归属某个资金池）
	PoolId *int64 `json:"pool_id" gorm:"index"`

	// 慈善机构信息
	CharityAddress string `json:"charity_address" gorm:"not null"`
	CharityName    string `json:"charity_name"`

	// 筹款信息（项目已筹金额不做缓存，一律从账本推导）
	FundingGoal int64 `json:"funding_goal" gorm:"default:0"`

	// 收款方式（外部托管，仅保存引用）
	WalletAddress string `json:"wallet_address"`
	BankAccount   string `json:"bank_account"`

	// 状态
	Status ProjectStatus `json:"status" gorm:"default:'active'"`
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"    // 进行中
	ProjectStatusClosed    ProjectStatus = "closed"    // 已关闭
	ProjectStatusSuspended ProjectStatus = "suspended" // 已暂停
)

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}
