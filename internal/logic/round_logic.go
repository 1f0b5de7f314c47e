package logic

import (
	"errors"
	"time"

	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/model"
	"gorm.io/gorm"
)

// RoundLogic 轮次业务逻辑
// 轮次分配是全系统最强的临界区：快照捐款、写入分配、翻转终态
// 必须在同一个持有轮次行锁的事务里完成。
type RoundLogic struct {
	db *gorm.DB
}

// NewRoundLogic 创建轮次业务逻辑
func NewRoundLogic(db *gorm.DB) *RoundLogic {
	return &RoundLogic{db: db}
}

// DistributeResult 轮次分配结果
type DistributeResult struct {
	Round       *model.RoundModel       `json:"round"`
	Allocations []model.AllocationModel `json:"allocations"`
	// Early 提前分配警告：在 end_time 之前强制分配时为 true
	Early bool `json:"early"`
	// AlreadyDistributed 幂等命中：轮次此前已分配，返回的是当时的分配集
	AlreadyDistributed bool `json:"already_distributed"`
	// NewRound 分配后新开的轮次（请求时才创建）
	NewRound *model.RoundModel `json:"new_round,omitempty"`
}

// CreateRound 创建轮次
// 同一资金池内时间窗口 [start_time, end_time) 不得重叠，
// 且同时至多存在一个未分配的轮次。
func (r *RoundLogic) CreateRound(round *model.RoundModel) error {
	if round.StartTime.IsZero() || round.EndTime.IsZero() {
		return NewValidationError("start_time", "轮次起止时间不能为空")
	}
	if !round.StartTime.Before(round.EndTime) {
		return NewValidationError("end_time", "结束时间必须晚于开始时间")
	}
	if round.MatchingPoolAmount < 0 {
		return NewValidationError("matching_pool_amount", "配捐池金额不能为负数")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var pool model.PoolModel
		if err := tx.First(&pool, round.PoolId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPoolNotFound
			}
			return err
		}
		if !pool.IsActive {
			return ErrPoolInactive
		}

		// 未分配轮次唯一
		var pending int64
		if err := tx.Model(&model.RoundModel{}).
			Where("pool_id = ? AND is_distributed = ?", round.PoolId, false).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrRoundOverlap
		}

		// 时间窗口不重叠
		var overlap int64
		if err := tx.Model(&model.RoundModel{}).
			Where("pool_id = ? AND start_time < ? AND end_time > ?",
				round.PoolId, round.EndTime, round.StartTime).
			Count(&overlap).Error; err != nil {
			return err
		}
		if overlap > 0 {
			return ErrRoundOverlap
		}

		now := time.Now()
		if round.StartTime.After(now) {
			round.Status = model.RoundStatusScheduled
		} else {
			round.Status = model.RoundStatusActive
		}
		round.IsDistributed = false

		return tx.Create(round).Error
	})
}

// GetRound 获取轮次详情
func (r *RoundLogic) GetRound(id int64) (*model.RoundModel, error) {
	var round model.RoundModel
	if err := r.db.First(&round, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

// GetCurrentRound 获取资金池当前轮次（未分配的那一个）
func (r *RoundLogic) GetCurrentRound(poolId int64) (*model.RoundModel, error) {
	var round model.RoundModel
	err := r.db.Where("pool_id = ? AND is_distributed = ?", poolId, false).
		Order("start_time ASC").First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

// RecordContribution 记录捐款
// 只接受当前处于窗口内且未分配的轮次；窗口之外一律返回 ErrRoundClosed，
// 不做静默丢弃。捐款写入与轮次校验同锁，分配快照因此是确定的。
func (r *RoundLogic) RecordContribution(contribution *model.ContributionModel) error {
	if contribution.Amount <= 0 {
		return NewValidationError("amount", "捐款金额必须大于0")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var round model.RoundModel
		if err := withRowLock(tx).First(&round, contribution.RoundId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoundNotFound
			}
			return err
		}

		if !round.IsOpenAt(time.Now()) {
			return ErrRoundClosed
		}

		var project model.ProjectModel
		if err := tx.First(&project, contribution.ProjectId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		// 项目归属了资金池时，只能向该池的轮次捐款
		if project.PoolId != nil && *project.PoolId != round.PoolId {
			return NewValidationError("project_id", "项目不属于该轮次所在的资金池")
		}

		return tx.Create(contribution).Error
	})
}

// CloseAndDistributeRound 关闭并分配轮次
// 幂等：对已分配的轮次重复调用返回当时的分配集，不报错也不重复写入。
// 在 end_time 之前调用必须显式 force，结果带提前分配警告。
func (r *RoundLogic) CloseAndDistributeRound(roundId int64, createNewRound bool, force bool) (*DistributeResult, error) {
	result := &DistributeResult{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var round model.RoundModel
		if err := withRowLock(tx).First(&round, roundId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoundNotFound
			}
			return err
		}

		// 幂等命中：返回已有分配集
		if round.IsDistributed {
			var allocations []model.AllocationModel
			if err := tx.Where("round_id = ?", roundId).
				Order("project_id ASC").Find(&allocations).Error; err != nil {
				return err
			}
			result.Round = &round
			result.Allocations = allocations
			result.AlreadyDistributed = true
			return nil
		}

		now := time.Now()
		if now.Before(round.EndTime) {
			if !force {
				return ErrRoundNotEnded
			}
			result.Early = true
		}

		// 捐款快照：此刻持有轮次行锁，之后到达的捐款会因窗口关闭被拒绝
		var contributions []model.ContributionModel
		if err := tx.Where("round_id = ?", roundId).Find(&contributions).Error; err != nil {
			return err
		}

		allocations := ComputeAllocations(roundId, round.MatchingPoolAmount, contributions)
		if len(allocations) > 0 {
			if err := tx.Create(&allocations).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":         model.RoundStatusDistributed,
			"is_distributed": true,
			"distributed_at": &now,
			// 提前分配时同步收窄窗口，后续捐款立即落在窗口之外
			"end_time": minTime(round.EndTime, now),
		}
		if err := tx.Model(&round).Updates(updates).Error; err != nil {
			return err
		}

		round.Status = model.RoundStatusDistributed
		round.IsDistributed = true
		round.DistributedAt = &now
		result.Round = &round
		result.Allocations = allocations

		// 按需开启下一轮，沿用上一轮的窗口时长；已停用的资金池不再开轮
		if createNewRound {
			var pool model.PoolModel
			if err := tx.First(&pool, round.PoolId).Error; err != nil {
				return err
			}
			if pool.IsActive {
				duration := round.EndTime.Sub(round.StartTime)
				next := &model.RoundModel{
					PoolId:    round.PoolId,
					StartTime: now,
					EndTime:   now.Add(duration),
					Status:    model.RoundStatusActive,
				}
				if err := tx.Create(next).Error; err != nil {
					return err
				}
				result.NewRound = next
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyDistributed {
		logger.Info("Round %d already distributed, returning %d prior allocations",
			roundId, len(result.Allocations))
	} else {
		logger.Info("Round %d distributed: %d allocations, early=%v",
			roundId, len(result.Allocations), result.Early)
	}
	return result, nil
}

// GetRoundAllocations 获取轮次分配记录
func (r *RoundLogic) GetRoundAllocations(roundId int64) ([]model.AllocationModel, error) {
	var allocations []model.AllocationModel
	err := r.db.Where("round_id = ?", roundId).
		Order("project_id ASC").Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

// ActivateDueRounds 把窗口已开启的待开始轮次翻转为进行中
// 捐款校验只看时间窗口，状态翻转纯粹是让状态字段与事实一致。
func (r *RoundLogic) ActivateDueRounds() (int64, error) {
	res := r.db.Model(&model.RoundModel{}).
		Where("status = ? AND start_time <= ?", model.RoundStatusScheduled, time.Now()).
		Update("status", model.RoundStatusActive)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// FindExpiredRounds 查找窗口已过且未分配的轮次
func (r *RoundLogic) FindExpiredRounds() ([]model.RoundModel, error) {
	var rounds []model.RoundModel
	err := r.db.Where("is_distributed = ? AND end_time <= ?", false, time.Now()).
		Find(&rounds).Error
	if err != nil {
		return nil, err
	}
	return rounds, nil
}

// minTime 取较早的时间
func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
