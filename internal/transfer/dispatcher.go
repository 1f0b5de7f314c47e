package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blues/qfs/internal/logger"
	"github.com/blues/qfs/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Dispatcher 转账派发器
// 快阶段（提案状态迁移 + 转账记录落库）在持锁事务里完成后，
// 慢阶段（等待外部结果）提交到协程池执行，全程不持有提案锁，
// 结果通过带状态条件的 UPDATE 回填。
type Dispatcher struct {
	db          *gorm.DB
	bank        Gateway
	crypto      Gateway
	pool        *ants.Pool
	callTimeout time.Duration
	maxAttempts int

	// inflight 同一笔转账在本进程内同时只允许一个慢阶段
	inflight sync.Map
}

// Options 派发器配置
type Options struct {
	PoolSize    int           // 协程池大小
	CallTimeout time.Duration // 单次外部调用超时
	MaxAttempts int           // 重试预算，超出后转终态失败
}

// NewDispatcher 创建转账派发器
func NewDispatcher(db *gorm.DB, bank Gateway, crypto Gateway, opts Options) (*Dispatcher, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 16
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	pool, err := ants.NewPool(opts.PoolSize)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		db:          db,
		bank:        bank,
		crypto:      crypto,
		pool:        pool,
		callTimeout: opts.CallTimeout,
		maxAttempts: opts.MaxAttempts,
	}, nil
}

// Release 释放协程池
func (d *Dispatcher) Release() {
	d.pool.Release()
}

// Dispatch 异步派发一笔已落库的转账
func (d *Dispatcher) Dispatch(transfer model.TransferModel) error {
	return d.pool.Submit(func() {
		d.process(transfer)
	})
}

// gatewayFor 按转账方式选择网关
func (d *Dispatcher) gatewayFor(t model.TransferType) Gateway {
	if t == model.TransferTypeCrypto {
		return d.crypto
	}
	return d.bank
}

// process 慢阶段：调用外部网关并回填结果
func (d *Dispatcher) process(transfer model.TransferModel) {
	if _, loaded := d.inflight.LoadOrStore(transfer.Id, struct{}{}); loaded {
		return
	}
	defer d.inflight.Delete(transfer.Id)

	// 重读当前状态：重试调用可能在排队期间已被 webhook 或对账收尾
	var current model.TransferModel
	if err := d.db.First(&current, transfer.Id).Error; err != nil {
		logger.Error("Failed to reload transfer %d: %v", transfer.Id, err)
		return
	}
	if current.Status != model.TransferStatusInitiated {
		return
	}
	// 已有外部引用说明发起调用成功过，只需查询终局，不再重复发起
	if current.ExternalReference != "" {
		d.queryAndApply(current)
		return
	}

	// 记账：本次尝试计入重试预算
	err := d.db.Model(&model.TransferModel{}).
		Where("id = ?", current.Id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		logger.Error("Failed to bump attempts for transfer %d: %v", current.Id, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.callTimeout)
	defer cancel()

	gateway := d.gatewayFor(current.Type)
	result, err := gateway.Transfer(ctx, Request{
		IdempotencyKey: current.IdempotencyKey,
		Destination:    current.Destination,
		Amount:         current.Amount,
	})

	switch {
	case err == nil:
		d.applyResult(current.Id, current.ProposalId, result)

	case isPermanent(err):
		var pe *PermanentError
		errors.As(err, &pe)
		d.MarkFailed(current.Id, current.ProposalId, pe.Reason)

	default:
		// 超时或暂时性故障：保持在途，留给重试或对账任务收尾
		logger.Warn("Transfer %d dispatch inconclusive, staying initiated: %v", current.Id, err)
	}
}

// queryAndApply 查询已发起转账的终局并回填
func (d *Dispatcher) queryAndApply(transfer model.TransferModel) {
	ctx, cancel := context.WithTimeout(context.Background(), d.callTimeout)
	defer cancel()

	result, err := d.gatewayFor(transfer.Type).QueryStatus(ctx, transfer.ExternalReference)
	if err != nil {
		logger.Warn("Status query failed for transfer %d: %v", transfer.Id, err)
		return
	}
	d.applyResult(transfer.Id, transfer.ProposalId, result)
}

// applyResult 按网关结果回填
func (d *Dispatcher) applyResult(transferId, proposalId int64, result *Result) {
	switch result.Status {
	case StatusCompleted:
		d.MarkCompleted(transferId, proposalId, result.Reference)
	case StatusFailed:
		d.MarkFailed(transferId, proposalId, result.Reason)
	default:
		// 受理中：记下外部引用，等 webhook 或对账任务判定终局
		err := d.db.Model(&model.TransferModel{}).
			Where("id = ? AND status = ?", transferId, model.TransferStatusInitiated).
			Update("external_reference", result.Reference).Error
		if err != nil {
			logger.Error("Failed to record reference for transfer %d: %v", transferId, err)
		}
	}
}

// MarkCompleted 转账完成：transfer -> completed，proposal -> completed
// 两个 UPDATE 都带状态条件，重复回填是无害的空操作。
func (d *Dispatcher) MarkCompleted(transferId, proposalId int64, reference string) {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TransferModel{}).
			Where("id = ? AND status = ?", transferId, model.TransferStatusInitiated).
			Updates(map[string]interface{}{
				"status":             model.TransferStatusCompleted,
				"external_reference": reference,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status = ?", proposalId, model.ProposalStatusTransferInitiated).
			Update("status", model.ProposalStatusCompleted).Error
	})
	if err != nil {
		logger.Error("Failed to mark transfer %d completed: %v", transferId, err)
		return
	}
	logger.Info("Transfer %d completed, proposal %d closed, reference=%s",
		transferId, proposalId, reference)
}

// MarkFailed 终态失败：transfer -> failed，proposal -> processing_error
func (d *Dispatcher) MarkFailed(transferId, proposalId int64, reason string) {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TransferModel{}).
			Where("id = ? AND status = ?", transferId, model.TransferStatusInitiated).
			Updates(map[string]interface{}{
				"status":      model.TransferStatusFailed,
				"fail_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&model.ProposalModel{}).
			Where("id = ? AND status = ?", proposalId, model.ProposalStatusTransferInitiated).
			Update("status", model.ProposalStatusProcessingError).Error
	})
	if err != nil {
		logger.Error("Failed to mark transfer %d failed: %v", transferId, err)
		return
	}
	logger.Warn("Transfer %d failed terminally, proposal %d needs manual action: %s",
		transferId, proposalId, reason)
}

// HandleStatusUpdate 处理外部异步状态回调（银行 webhook）
func (d *Dispatcher) HandleStatusUpdate(reference string, status Status, reason string) error {
	var transfer model.TransferModel
	err := d.db.Where("external_reference = ?", reference).First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return err
	}

	switch status {
	case StatusCompleted:
		d.MarkCompleted(transfer.Id, transfer.ProposalId, reference)
	case StatusFailed:
		d.MarkFailed(transfer.Id, transfer.ProposalId, reason)
	}
	return nil
}

// Reconcile 对账一笔在途转账：主动查询网关并判定终局
// 状态仍未定且超出重试预算时转终态失败，需要人工介入。
func (d *Dispatcher) Reconcile(transfer model.TransferModel) {
	if transfer.Status != model.TransferStatusInitiated {
		return
	}

	// 还没拿到外部引用说明发起调用从未成功，按重试预算重新派发
	if transfer.ExternalReference == "" {
		if transfer.Attempts >= d.maxAttempts {
			d.MarkFailed(transfer.Id, transfer.ProposalId, "发起转账重试次数超出预算")
			return
		}
		d.process(transfer)
		return
	}

	d.queryAndApply(transfer)
}

// FindStuckTransfers 查找超过宽限期仍在途的转账
func (d *Dispatcher) FindStuckTransfers(grace time.Duration) ([]model.TransferModel, error) {
	var transfers []model.TransferModel
	err := d.db.Where("status = ? AND updated_at <= ?",
		model.TransferStatusInitiated, time.Now().Add(-grace)).
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

// isPermanent 判断是否为网关终态失败
func isPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
