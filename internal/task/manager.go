package task

import (
	"github.com/blues/qfs/internal/config"
	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/logic"
	"github.com/blues/qfs/internal/transfer"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Manager 任务管理器
type Manager struct {
	scheduler  gocron.Scheduler
	db         *gorm.DB
	dispatcher *transfer.Dispatcher
	voteLogic  *logic.VoteLogic
	config     *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, dispatcher *transfer.Dispatcher, voteLogic *logic.VoteLogic, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler:  s,
		db:         db,
		dispatcher: dispatcher,
		voteLogic:  voteLogic,
		config:     cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, dispatcher *transfer.Dispatcher, voteLogic *logic.VoteLogic, cfg *config.Config) *Manager {
	manager := NewManager(db, dispatcher, voteLogic, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.register(NewRoundFinishJob(m.db, m.config))
	m.register(NewVotingCloseJob(m.voteLogic, m.config))
	m.register(NewTransferReconcileJob(m.dispatcher, m.config))
}

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// register 注册单个任务，同名任务不并发执行
func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
