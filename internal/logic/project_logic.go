package logic

import (
	"errors"

	"github.com/blues/qfs/internal/model"
	"gorm.io/gorm"
)

// ProjectLogic 项目业务逻辑
type ProjectLogic struct {
	db     *gorm.DB
	ledger *LedgerLogic
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB) *ProjectLogic {
	return &ProjectLogic{db: db, ledger: NewLedgerLogic(db)}
}

// CreateProject 创建项目
func (p *ProjectLogic) CreateProject(project *model.ProjectModel) error {
	if err := p.validateProject(project); err != nil {
		return err
	}

	if project.PoolId != nil {
		var pool model.PoolModel
		if err := p.db.First(&pool, *project.PoolId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPoolNotFound
			}
			return err
		}
	}

	project.Status = model.ProjectStatusActive
	return p.db.Create(project).Error
}

// GetProjects 获取项目列表
func (p *ProjectLogic) GetProjects(poolId *int64) ([]model.ProjectModel, error) {
	var projects []model.ProjectModel
	query := p.db.Order("id ASC")
	if poolId != nil {
		query = query.Where("pool_id = ?", *poolId)
	}
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject 获取项目详情
func (p *ProjectLogic) GetProject(id int64) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := p.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// GetProjectStats 获取项目统计信息
// 金额全部来自账本推导，项目表上不缓存任何余额字段。
func (p *ProjectLogic) GetProjectStats(id int64) (map[string]interface{}, error) {
	project, err := p.GetProject(id)
	if err != nil {
		return nil, err
	}

	balance, err := p.ledger.GetProjectBalance(id)
	if err != nil {
		return nil, err
	}

	var contributorCount int64
	err = p.db.Model(&model.ContributionModel{}).
		Where("project_id = ? AND contributor_address IS NOT NULL", id).
		Distinct("contributor_address").
		Count(&contributorCount).Error
	if err != nil {
		return nil, err
	}

	completion := float64(0)
	if project.FundingGoal > 0 {
		completion = float64(balance.Contributed+balance.Matched) / float64(project.FundingGoal) * 100
	}

	return map[string]interface{}{
		"project_id":            project.Id,
		"funding_goal":          project.FundingGoal,
		"contributed":           balance.Contributed,
		"matched":               balance.Matched,
		"reserved":              balance.Reserved,
		"available":             balance.Available,
		"contributor_count":     contributorCount,
		"completion_percentage": completion,
		"status":                project.Status,
	}, nil
}

// validateProject 验证项目数据
func (p *ProjectLogic) validateProject(project *model.ProjectModel) error {
	if project.Title == "" {
		return NewValidationError("title", "项目标题不能为空")
	}
	if project.CharityAddress == "" {
		return NewValidationError("charity_address", "慈善机构地址不能为空")
	}
	if project.FundingGoal < 0 {
		return NewValidationError("funding_goal", "筹款目标不能为负数")
	}
	if project.WalletAddress == "" && project.BankAccount == "" {
		return NewValidationError("wallet_address", "至少配置一种收款方式")
	}
	return nil
}
