package model

import (
	"time"
)

// VoteModel 捐款人投票记录（只追加，每个提案每个投票人唯一）
type VoteModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProposalId   int64  `json:"proposal_id" gorm:"not null;uniqueIndex:uk_proposal_voter"`
	VoterAddress string `json:"voter_address" gorm:"not null;uniqueIndex:uk_proposal_voter"`

	VoteType VoteType `json:"vote_type" gorm:"not null"`
	Comment  string   `json:"comment" gorm:"type:text"`
}

// VoteType 投票类型
type VoteType string

const (
	VoteTypeYes     VoteType = "yes"     // 赞成
	VoteTypeNo      VoteType = "no"      // 反对
	VoteTypeAbstain VoteType = "abstain" // 弃权（计入参与度，不计入比例）
)

// TableName 自定义表名
func (VoteModel) TableName() string {
	return "vote"
}
