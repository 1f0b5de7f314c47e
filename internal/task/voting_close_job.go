package task

import (
	"time"

	"github.com/blues/qfs/internal/config"
	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/model"
	"github.com/go-co-op/gocron/v2"
)

// VotingCloseJob 投票关窗任务
// 查找投票窗口已过的提案并裁决：达到法定人数与赞成比例则通过，否则拒绝。
type VotingCloseJob struct {
	voteLogic *logic.VoteLogic
	config    *config.Config
}

// NewVotingCloseJob 创建投票关窗任务
func NewVotingCloseJob(voteLogic *logic.VoteLogic, cfg *config.Config) *VotingCloseJob {
	return &VotingCloseJob{
		voteLogic: voteLogic,
		config:    cfg,
	}
}

// GetName 获取任务名称
func (j *VotingCloseJob) GetName() string {
	return "voting_close_updater"
}

// GetSchedule 获取调度配置
func (j *VotingCloseJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *VotingCloseJob) Execute() {
	logger.Info("Starting voting close task")

	proposals, err := j.voteLogic.FindExpiredVoting()
	if err != nil {
		logger.Error("Failed to fetch proposals with expired voting: %v", err)
		return
	}

	closedCount := 0

	for _, proposal := range proposals {
		closed, err := j.voteLogic.CloseVoting(proposal.Id)
		if err != nil {
			logger.Error("Failed to close voting for proposal %d: %v", proposal.Id, err)
			continue
		}

		if closed.Status == model.ProposalStatusApproved {
			logger.Info("Proposal %d approved by donor vote", proposal.Id)
		} else {
			logger.Info("Proposal %d rejected at voting deadline", proposal.Id)
		}
		closedCount++
	}

	logger.Info("Voting close task completed. Closed %d proposals", closedCount)
}
