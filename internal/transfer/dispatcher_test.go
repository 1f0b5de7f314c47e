package transfer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/blues/qfs/internal/model"
	"github.com/blues/qfs/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	return db
}

// fakeGateway 可编程网关桩
type fakeGateway struct {
	transferFn    func(req Request) (*Result, error)
	queryFn       func(reference string) (*Result, error)
	transferCalls int
}

func (f *fakeGateway) Transfer(_ context.Context, req Request) (*Result, error) {
	f.transferCalls++
	return f.transferFn(req)
}

func (f *fakeGateway) QueryStatus(_ context.Context, reference string) (*Result, error) {
	return f.queryFn(reference)
}

func seedInitiatedTransfer(t *testing.T, db *gorm.DB) model.TransferModel {
	t.Helper()

	proposal := model.ProposalModel{
		ProjectId:    1,
		Amount:       500,
		TransferType: model.TransferTypeBank,
		Status:       model.ProposalStatusTransferInitiated,
	}
	require.NoError(t, db.Create(&proposal).Error)

	transfer := model.TransferModel{
		ProposalId:     proposal.Id,
		Type:           model.TransferTypeBank,
		IdempotencyKey: fmt.Sprintf("key-%d", proposal.Id),
		Amount:         500,
		Destination:    "6222000011112222",
		Status:         model.TransferStatusInitiated,
	}
	require.NoError(t, db.Create(&transfer).Error)
	return transfer
}

func newTestDispatcher(t *testing.T, db *gorm.DB, bank Gateway) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(db, bank, bank, Options{PoolSize: 1, MaxAttempts: 3})
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func requireStatuses(t *testing.T, db *gorm.DB, transferId, proposalId int64,
	wantTransfer model.TransferStatus, wantProposal model.ProposalStatus) {
	t.Helper()

	var transfer model.TransferModel
	require.NoError(t, db.First(&transfer, transferId).Error)
	assert.Equal(t, wantTransfer, transfer.Status)

	var proposal model.ProposalModel
	require.NoError(t, db.First(&proposal, proposalId).Error)
	assert.Equal(t, wantProposal, proposal.Status)
}

func TestProcessCompletesTransfer(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)

	bank := &fakeGateway{
		transferFn: func(req Request) (*Result, error) {
			assert.Equal(t, transfer.IdempotencyKey, req.IdempotencyKey)
			return &Result{Reference: "ref-1", Status: StatusCompleted}, nil
		},
	}
	d := newTestDispatcher(t, db, bank)
	d.process(transfer)

	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusCompleted, model.ProposalStatusCompleted)

	var reloaded model.TransferModel
	require.NoError(t, db.First(&reloaded, transfer.Id).Error)
	assert.Equal(t, "ref-1", reloaded.ExternalReference)
	assert.Equal(t, 1, reloaded.Attempts)
}

func TestProcessPermanentFailure(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)

	bank := &fakeGateway{
		transferFn: func(Request) (*Result, error) {
			return nil, &PermanentError{Reason: "收款账户已注销"}
		},
	}
	newTestDispatcher(t, db, bank).process(transfer)

	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusFailed, model.ProposalStatusProcessingError)

	var reloaded model.TransferModel
	require.NoError(t, db.First(&reloaded, transfer.Id).Error)
	assert.Equal(t, "收款账户已注销", reloaded.FailReason)
}

func TestProcessTransientFailureStaysInitiated(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)

	bank := &fakeGateway{
		transferFn: func(Request) (*Result, error) {
			return nil, context.DeadlineExceeded
		},
	}
	newTestDispatcher(t, db, bank).process(transfer)

	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusInitiated, model.ProposalStatusTransferInitiated)
}

func TestProcessSkipsTerminalTransfer(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)
	require.NoError(t, db.Model(&model.TransferModel{}).
		Where("id = ?", transfer.Id).
		Update("status", model.TransferStatusCompleted).Error)

	bank := &fakeGateway{
		transferFn: func(Request) (*Result, error) {
			t.Fatal("gateway should not be called for a terminal transfer")
			return nil, nil
		},
	}
	d := newTestDispatcher(t, db, bank)
	d.process(transfer)
	assert.Zero(t, bank.transferCalls)
}

func TestProcessReusesExternalReference(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)
	require.NoError(t, db.Model(&model.TransferModel{}).
		Where("id = ?", transfer.Id).
		Update("external_reference", "ref-early").Error)

	// 已有外部引用时只查询终局，绝不二次发起
	bank := &fakeGateway{
		transferFn: func(Request) (*Result, error) {
			t.Fatal("gateway must not re-initiate an acknowledged transfer")
			return nil, nil
		},
		queryFn: func(reference string) (*Result, error) {
			assert.Equal(t, "ref-early", reference)
			return &Result{Reference: reference, Status: StatusCompleted}, nil
		},
	}
	d := newTestDispatcher(t, db, bank)
	d.process(transfer)

	assert.Zero(t, bank.transferCalls)
	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusCompleted, model.ProposalStatusCompleted)
}

func TestPendingResultThenWebhook(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)

	bank := &fakeGateway{
		transferFn: func(Request) (*Result, error) {
			return &Result{Reference: "ref-2", Status: StatusPending}, nil
		},
	}
	d := newTestDispatcher(t, db, bank)
	d.process(transfer)

	// 受理中：记下引用，保持在途
	var reloaded model.TransferModel
	require.NoError(t, db.First(&reloaded, transfer.Id).Error)
	assert.Equal(t, model.TransferStatusInitiated, reloaded.Status)
	assert.Equal(t, "ref-2", reloaded.ExternalReference)

	// webhook 到达后收尾
	require.NoError(t, d.HandleStatusUpdate("ref-2", StatusCompleted, ""))
	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusCompleted, model.ProposalStatusCompleted)

	// 重复回调是无害的空操作
	require.NoError(t, d.HandleStatusUpdate("ref-2", StatusFailed, "duplicate"))
	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusCompleted, model.ProposalStatusCompleted)
}

func TestReconcileFailsAfterAttemptBudget(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)
	require.NoError(t, db.Model(&model.TransferModel{}).
		Where("id = ?", transfer.Id).
		Update("attempts", 3).Error)
	transfer.Attempts = 3

	bank := &fakeGateway{
		transferFn: func(Request) (*Result, error) {
			t.Fatal("gateway should not be called past the attempt budget")
			return nil, nil
		},
	}
	d := newTestDispatcher(t, db, bank)
	d.Reconcile(transfer)

	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusFailed, model.ProposalStatusProcessingError)
}

func TestReconcileQueriesAcknowledgedTransfer(t *testing.T) {
	db := newTestDB(t)
	transfer := seedInitiatedTransfer(t, db)
	require.NoError(t, db.Model(&model.TransferModel{}).
		Where("id = ?", transfer.Id).
		Update("external_reference", "ref-3").Error)
	transfer.ExternalReference = "ref-3"

	bank := &fakeGateway{
		queryFn: func(reference string) (*Result, error) {
			return &Result{Reference: reference, Status: StatusFailed, Reason: "对方账户冻结"}, nil
		},
	}
	newTestDispatcher(t, db, bank).Reconcile(transfer)

	requireStatuses(t, db, transfer.Id, transfer.ProposalId,
		model.TransferStatusFailed, model.ProposalStatusProcessingError)
}
