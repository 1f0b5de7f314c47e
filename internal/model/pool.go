package model

import (
	"time"
)

// PoolModel 主题资金池模型
type PoolModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Name        string `json:"name" gorm:"not null" binding:"required"`
	Theme       string `json:"theme"`
	Description string `json:"description" gorm:"type:text"`

	// 赞助方信息
	SponsorAddress string `json:"sponsor_address" gorm:"not null"`
	SponsorName    string `json:"sponsor_name"`

	// 资金信息（总注资只增不减）
	TotalFunds int64 `json:"total_funds" gorm:"default:0"`

	// 状态
	IsActive bool `json:"is_active" gorm:"default:true"`
}

// TableName 自定义表名
func (PoolModel) TableName() string {
	return "pool"
}
