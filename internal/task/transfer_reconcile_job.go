package task

import (
	"time"

	"github.com/blues/qfs/internal/config"
	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/transfer"
	"github.com/go-co-op/gocron/v2"
)

// TransferReconcileJob 转账对账任务
// 对超过宽限期仍在途的转账主动查询网关判定终局，
// 从未发起成功且超出重试预算的转为终态失败。
type TransferReconcileJob struct {
	dispatcher *transfer.Dispatcher
	config     *config.Config
}

// NewTransferReconcileJob 创建转账对账任务
func NewTransferReconcileJob(dispatcher *transfer.Dispatcher, cfg *config.Config) *TransferReconcileJob {
	return &TransferReconcileJob{
		dispatcher: dispatcher,
		config:     cfg,
	}
}

// GetName 获取任务名称
func (j *TransferReconcileJob) GetName() string {
	return "transfer_reconcile_updater"
}

// GetSchedule 获取调度配置
func (j *TransferReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *TransferReconcileJob) Execute() {
	logger.Info("Starting transfer reconcile task")

	// 宽限期取单次调用超时的两倍，避免和正常在途的慢阶段抢跑
	grace := 2 * time.Duration(j.config.Governance.TransferTimeout) * time.Second

	transfers, err := j.dispatcher.FindStuckTransfers(grace)
	if err != nil {
		logger.Error("Failed to fetch stuck transfers: %v", err)
		return
	}

	for _, t := range transfers {
		j.dispatcher.Reconcile(t)
	}

	logger.Info("Transfer reconcile task completed. Checked %d transfers", len(transfers))
}
