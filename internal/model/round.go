package model

import (
	"time"
)

// RoundModel 配捐轮次模型
type RoundModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PoolId int64 `json:"pool_id" gorm:"not null;index"`

	// 时间窗口 [start_time, end_time)
	StartTime time.Time `json:"start_time" gorm:"not null"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`

	// 配捐池金额（轮次创建时预留，可随赞助注资累加）
	MatchingPoolAmount int64 `json:"matching_pool_amount" gorm:"default:0"`

	// 状态
	Status        RoundStatus `json:"status" gorm:"default:'scheduled'"`
	IsDistributed bool        `json:"is_distributed" gorm:"default:false"`
	DistributedAt *time.Time  `json:"distributed_at"`
}

// RoundStatus 轮次状态
type RoundStatus string

const (
	RoundStatusScheduled   RoundStatus = "scheduled"   // 待开始
	RoundStatusActive      RoundStatus = "active"      // 进行中
	RoundStatusDistributed RoundStatus = "distributed" // 已分配（终态，不可变）
)

// TableName 自定义表名
func (RoundModel) TableName() string {
	return "round"
}

// IsOpenAt 判断指定时间是否在轮次窗口内
func (r *RoundModel) IsOpenAt(t time.Time) bool {
	if r.IsDistributed {
		return false
	}
	return !t.Before(r.StartTime) && t.Before(r.EndTime)
}
