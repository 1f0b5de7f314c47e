package logic

import (
	"errors"

	"github.com/blues/qfs/internal/model"
	"gorm.io/gorm"
)

// PoolLogic 资金池业务逻辑
type PoolLogic struct {
	db *gorm.DB
}

// NewPoolLogic 创建资金池业务逻辑
func NewPoolLogic(db *gorm.DB) *PoolLogic {
	return &PoolLogic{db: db}
}

// CreatePool 创建资金池
func (p *PoolLogic) CreatePool(pool *model.PoolModel) error {
	if pool.Name == "" {
		return NewValidationError("name", "资金池名称不能为空")
	}
	if pool.SponsorAddress == "" {
		return NewValidationError("sponsor_address", "赞助方地址不能为空")
	}

	pool.TotalFunds = 0
	pool.IsActive = true

	if err := p.db.Create(pool).Error; err != nil {
		return err
	}
	return nil
}

// GetPools 获取资金池列表
func (p *PoolLogic) GetPools() ([]model.PoolModel, error) {
	var pools []model.PoolModel
	if err := p.db.Order("id ASC").Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

// GetPool 获取资金池详情
func (p *PoolLogic) GetPool(id int64) (*model.PoolModel, error) {
	var pool model.PoolModel
	if err := p.db.First(&pool, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// AddFunds 注入赞助资金
// 注资同时累加资金池总额和当前轮次的配捐池金额；总额只增不减。
func (p *PoolLogic) AddFunds(poolId int64, amount int64) (*model.PoolModel, error) {
	if amount <= 0 {
		return nil, NewValidationError("amount", "注资金额必须大于0")
	}

	var pool model.PoolModel
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := withRowLock(tx).First(&pool, poolId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPoolNotFound
			}
			return err
		}
		if !pool.IsActive {
			return ErrPoolInactive
		}

		if err := tx.Model(&pool).
			Update("total_funds", gorm.Expr("total_funds + ?", amount)).Error; err != nil {
			return err
		}

		// 当前未分配的轮次同步累加配捐池
		res := tx.Model(&model.RoundModel{}).
			Where("pool_id = ? AND is_distributed = ?", poolId, false).
			Update("matching_pool_amount", gorm.Expr("matching_pool_amount + ?", amount))
		if res.Error != nil {
			return res.Error
		}

		pool.TotalFunds += amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// DeactivatePool 停用资金池
func (p *PoolLogic) DeactivatePool(id int64) error {
	res := p.db.Model(&model.PoolModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}
