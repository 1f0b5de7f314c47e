package logic

import (
	"testing"
	"time"

	"github.com/blues/qfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoundRejectsSecondPendingRound(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)
	logic := NewRoundLogic(db)

	now := time.Now()
	first := &model.RoundModel{
		PoolId:    pool.Id,
		StartTime: now,
		EndTime:   now.Add(24 * time.Hour),
	}
	require.NoError(t, logic.CreateRound(first))
	assert.Equal(t, model.RoundStatusActive, first.Status)

	second := &model.RoundModel{
		PoolId:    pool.Id,
		StartTime: now.Add(48 * time.Hour),
		EndTime:   now.Add(72 * time.Hour),
	}
	assert.ErrorIs(t, logic.CreateRound(second), ErrRoundOverlap)
}

func TestCreateRoundInactivePool(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)
	require.NoError(t, NewPoolLogic(db).DeactivatePool(pool.Id))

	now := time.Now()
	err := NewRoundLogic(db).CreateRound(&model.RoundModel{
		PoolId:    pool.Id,
		StartTime: now,
		EndTime:   now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrPoolInactive)
}

func TestRecordContributionAfterWindowClosed(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)
	project := seedProject(t, db, &pool.Id)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-2*time.Hour), now.Add(-time.Hour), 1000)

	err := NewRoundLogic(db).RecordContribution(&model.ContributionModel{
		RoundId:   round.Id,
		ProjectId: project.Id,
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrRoundClosed)
}

func TestRecordContributionWrongPool(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)
	other := seedPool(t, db)
	project := seedProject(t, db, &other.Id)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-time.Hour), now.Add(time.Hour), 1000)

	err := NewRoundLogic(db).RecordContribution(&model.ContributionModel{
		RoundId:   round.Id,
		ProjectId: project.Id,
		Amount:    100,
	})
	assert.True(t, IsValidation(err))
}

func TestDistributeBeforeEndRequiresForce(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)
	project := seedProject(t, db, &pool.Id)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-time.Hour), now.Add(time.Hour), 1000)
	seedContribution(t, db, round.Id, project.Id, "0xdonor1", 100, true)

	logic := NewRoundLogic(db)

	_, err := logic.CloseAndDistributeRound(round.Id, false, false)
	assert.ErrorIs(t, err, ErrRoundNotEnded)

	result, err := logic.CloseAndDistributeRound(round.Id, false, true)
	require.NoError(t, err)
	assert.True(t, result.Early)
	assert.True(t, result.Round.IsDistributed)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, int64(1000), result.Allocations[0].MatchedAmount)

	// 提前分配收窄了窗口，后续捐款直接被拒绝
	err = logic.RecordContribution(&model.ContributionModel{
		RoundId:   round.Id,
		ProjectId: project.Id,
		Amount:    50,
	})
	assert.ErrorIs(t, err, ErrRoundClosed)
}

func TestDistributeRoundIdempotent(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)
	p1 := seedProject(t, db, &pool.Id)
	p2 := seedProject(t, db, &pool.Id)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-2*time.Hour), now.Add(-time.Minute), 1000)
	seedContribution(t, db, round.Id, p1.Id, "0xdonor1", 1, true)
	seedContribution(t, db, round.Id, p1.Id, "0xdonor2", 1, true)
	seedContribution(t, db, round.Id, p1.Id, "0xdonor3", 1, true)
	seedContribution(t, db, round.Id, p1.Id, "0xdonor4", 1, true)
	seedContribution(t, db, round.Id, p2.Id, "0xdonor5", 4, true)

	logic := NewRoundLogic(db)

	first, err := logic.CloseAndDistributeRound(round.Id, false, false)
	require.NoError(t, err)
	assert.False(t, first.AlreadyDistributed)
	require.Len(t, first.Allocations, 2)
	assert.Equal(t, int64(800), first.Allocations[0].MatchedAmount)
	assert.Equal(t, int64(200), first.Allocations[1].MatchedAmount)

	second, err := logic.CloseAndDistributeRound(round.Id, false, false)
	require.NoError(t, err)
	assert.True(t, second.AlreadyDistributed)
	require.Len(t, second.Allocations, 2)
	assert.Equal(t, first.Allocations[0].MatchedAmount, second.Allocations[0].MatchedAmount)
	assert.Equal(t, first.Allocations[1].MatchedAmount, second.Allocations[1].MatchedAmount)

	// 分配记录没有被重复写入
	var count int64
	require.NoError(t, db.Model(&model.AllocationModel{}).
		Where("round_id = ?", round.Id).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDistributeRoundOpensNextRound(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-25*time.Hour), now.Add(-time.Hour), 500)

	result, err := NewRoundLogic(db).CloseAndDistributeRound(round.Id, true, false)
	require.NoError(t, err)

	// 没有任何权重时轮次照常关闭，只是不产生分配
	assert.Empty(t, result.Allocations)
	assert.True(t, result.Round.IsDistributed)

	require.NotNil(t, result.NewRound)
	assert.Equal(t, pool.Id, result.NewRound.PoolId)
	assert.Equal(t, 24*time.Hour, result.NewRound.EndTime.Sub(result.NewRound.StartTime))
	assert.False(t, result.NewRound.IsDistributed)
}

func TestDistributeDoesNotReopenInactivePool(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-25*time.Hour), now.Add(-time.Hour), 500)
	require.NoError(t, NewPoolLogic(db).DeactivatePool(pool.Id))

	result, err := NewRoundLogic(db).CloseAndDistributeRound(round.Id, true, false)
	require.NoError(t, err)

	// 旧轮次照常收尾，但停用的资金池不会再开新轮
	assert.True(t, result.Round.IsDistributed)
	assert.Nil(t, result.NewRound)

	var pending int64
	require.NoError(t, db.Model(&model.RoundModel{}).
		Where("pool_id = ? AND is_distributed = ?", pool.Id, false).
		Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestActivateDueRounds(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)

	now := time.Now()
	due := &model.RoundModel{
		PoolId:    pool.Id,
		StartTime: now.Add(-time.Minute),
		EndTime:   now.Add(time.Hour),
		Status:    model.RoundStatusScheduled,
	}
	require.NoError(t, db.Create(due).Error)

	other := seedPool(t, db)
	future := &model.RoundModel{
		PoolId:    other.Id,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
		Status:    model.RoundStatusScheduled,
	}
	require.NoError(t, db.Create(future).Error)

	activated, err := NewRoundLogic(db).ActivateDueRounds()
	require.NoError(t, err)
	assert.Equal(t, int64(1), activated)

	var reloaded model.RoundModel
	require.NoError(t, db.First(&reloaded, due.Id).Error)
	assert.Equal(t, model.RoundStatusActive, reloaded.Status)

	reloaded = model.RoundModel{}
	require.NoError(t, db.First(&reloaded, future.Id).Error)
	assert.Equal(t, model.RoundStatusScheduled, reloaded.Status)
}

func TestAddFundsFlowsIntoCurrentRound(t *testing.T) {
	db := newTestDB(t)
	pool := seedPool(t, db)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-time.Hour), now.Add(time.Hour), 1000)

	updated, err := NewPoolLogic(db).AddFunds(pool.Id, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), updated.TotalFunds)

	var reloaded model.RoundModel
	require.NoError(t, db.First(&reloaded, round.Id).Error)
	assert.Equal(t, int64(1250), reloaded.MatchingPoolAmount)
}
