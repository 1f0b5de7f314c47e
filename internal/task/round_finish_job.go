package task

import (
	"time"

	"github.com/blues/qfs/internal/config"
	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// RoundFinishJob 轮次收尾任务
// 查找窗口已过但未分配的轮次，执行配捐分配并为活跃资金池开启下一轮。
type RoundFinishJob struct {
	db         *gorm.DB
	config     *config.Config
	roundLogic *logic.RoundLogic
}

// NewRoundFinishJob 创建轮次收尾任务
func NewRoundFinishJob(db *gorm.DB, cfg *config.Config) *RoundFinishJob {
	return &RoundFinishJob{
		db:         db,
		config:     cfg,
		roundLogic: logic.NewRoundLogic(db),
	}
}

// GetName 获取任务名称
func (j *RoundFinishJob) GetName() string {
	return "round_finish_updater"
}

// GetSchedule 获取调度配置
func (j *RoundFinishJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *RoundFinishJob) Execute() {
	logger.Info("Starting round finish task")

	// 先把到点的待开始轮次翻转为进行中
	activated, err := j.roundLogic.ActivateDueRounds()
	if err != nil {
		logger.Error("Failed to activate due rounds: %v", err)
	} else if activated > 0 {
		logger.Info("Activated %d scheduled rounds", activated)
	}

	rounds, err := j.roundLogic.FindExpiredRounds()
	if err != nil {
		logger.Error("Failed to fetch expired rounds: %v", err)
		return
	}

	finishedCount := 0

	for _, round := range rounds {
		result, err := j.roundLogic.CloseAndDistributeRound(round.Id, true, false)
		if err != nil {
			logger.Error("Failed to distribute round %d: %v", round.Id, err)
			continue
		}
		if result.AlreadyDistributed {
			continue
		}

		logger.Info("Distributed round %d: %d allocations, matching pool %d",
			round.Id, len(result.Allocations), round.MatchingPoolAmount)
		if result.NewRound != nil {
			logger.Info("Opened round %d for pool %d", result.NewRound.Id, round.PoolId)
		}
		finishedCount++
	}

	logger.Info("Round finish task completed. Distributed %d rounds", finishedCount)
}
