package logic

import (
	"fmt"

	"github.com/blues/qfs/internal/model"
	"gorm.io/gorm"
)

// LedgerLogic 账本查询逻辑
// 捐款、配捐、转账三张只追加表是余额的唯一事实来源，
// 任何组件都不缓存派生出来的余额。
type LedgerLogic struct {
	db *gorm.DB
}

// NewLedgerLogic 创建账本查询逻辑
func NewLedgerLogic(db *gorm.DB) *LedgerLogic {
	return &LedgerLogic{db: db}
}

// ProjectBalance 项目资金快照
type ProjectBalance struct {
	ProjectId   int64 `json:"project_id"`
	Contributed int64 `json:"contributed"` // 累计捐款
	Matched     int64 `json:"matched"`     // 累计配捐
	Reserved    int64 `json:"reserved"`    // 非失败转账占用（含进行中）
	Available   int64 `json:"available"`   // 可用余额
}

// GetProjectBalance 计算项目余额
// 可用余额 = 捐款 + 配捐 - 非失败转账。进行中的转账同样占用余额，
// 避免同一笔资金被两个提案同时花掉。
func (l *LedgerLogic) GetProjectBalance(projectId int64) (*ProjectBalance, error) {
	return l.balanceTx(l.db, projectId)
}

// GetProjectBalanceTx 在指定事务内计算项目余额
func (l *LedgerLogic) GetProjectBalanceTx(tx *gorm.DB, projectId int64) (*ProjectBalance, error) {
	return l.balanceTx(tx, projectId)
}

func (l *LedgerLogic) balanceTx(tx *gorm.DB, projectId int64) (*ProjectBalance, error) {
	var contributed int64
	err := tx.Model(&model.ContributionModel{}).
		Where("project_id = ?", projectId).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&contributed).Error
	if err != nil {
		return nil, fmt.Errorf("统计项目捐款失败: %w", err)
	}

	var matched int64
	err = tx.Model(&model.AllocationModel{}).
		Where("project_id = ?", projectId).
		Select("COALESCE(SUM(matched_amount), 0)").
		Scan(&matched).Error
	if err != nil {
		return nil, fmt.Errorf("统计项目配捐失败: %w", err)
	}

	var reserved int64
	err = tx.Model(&model.TransferModel{}).
		Joins("JOIN proposal ON proposal.id = transfer.proposal_id").
		Where("proposal.project_id = ? AND transfer.status <> ?", projectId, model.TransferStatusFailed).
		Select("COALESCE(SUM(transfer.amount), 0)").
		Scan(&reserved).Error
	if err != nil {
		return nil, fmt.Errorf("统计项目转账占用失败: %w", err)
	}

	return &ProjectBalance{
		ProjectId:   projectId,
		Contributed: contributed,
		Matched:     matched,
		Reserved:    reserved,
		Available:   contributed + matched - reserved,
	}, nil
}

// GetRoundContributionStats 轮次捐款统计
func (l *LedgerLogic) GetRoundContributionStats(roundId int64) (map[string]interface{}, error) {
	var stats struct {
		ContributionCount int64
		ContributorCount  int64
		TotalAmount       int64
		EligibleAmount    int64
	}

	err := l.db.Raw(`
		SELECT
			COUNT(*) as contribution_count,
			COUNT(DISTINCT contributor_address) as contributor_count,
			COALESCE(SUM(amount), 0) as total_amount,
			COALESCE(SUM(CASE WHEN is_quadratic_eligible THEN amount ELSE 0 END), 0) as eligible_amount
		FROM contribution
		WHERE round_id = ?
	`, roundId).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("统计轮次捐款失败: %w", err)
	}

	return map[string]interface{}{
		"round_id":           roundId,
		"contribution_count": stats.ContributionCount,
		"contributor_count":  stats.ContributorCount,
		"total_amount":       stats.TotalAmount,
		"eligible_amount":    stats.EligibleAmount,
	}, nil
}

// HasContributed 判断某地址是否为项目捐款人（投票资格依据）
func (l *LedgerLogic) HasContributed(projectId int64, address string) (bool, error) {
	var count int64
	err := l.db.Model(&model.ContributionModel{}).
		Where("project_id = ? AND contributor_address = ?", projectId, address).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询捐款记录失败: %w", err)
	}
	return count > 0, nil
}
