package logic

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/blues/qfs/internal/model"
	"github.com/blues/qfs/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// newTestDB 每个测试一个独立的内存库
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

func seedPool(t *testing.T, db *gorm.DB) *model.PoolModel {
	t.Helper()

	pool := &model.PoolModel{
		Name:           "清洁水源池",
		SponsorAddress: "0xsponsor",
		TotalFunds:     0,
		IsActive:       true,
	}
	require.NoError(t, db.Create(pool).Error)
	return pool
}

func seedRound(t *testing.T, db *gorm.DB, poolId int64, start, end time.Time, matching int64) *model.RoundModel {
	t.Helper()

	round := &model.RoundModel{
		PoolId:             poolId,
		StartTime:          start,
		EndTime:            end,
		MatchingPoolAmount: matching,
		Status:             model.RoundStatusActive,
	}
	require.NoError(t, db.Create(round).Error)
	return round
}

func seedProject(t *testing.T, db *gorm.DB, poolId *int64) *model.ProjectModel {
	t.Helper()

	project := &model.ProjectModel{
		Title:          "乡村净水站",
		PoolId:         poolId,
		CharityAddress: "0xcharity",
		FundingGoal:    100000,
		WalletAddress:  "0x00000000000000000000000000000000000000aa",
		BankAccount:    "6222000011112222",
		Status:         model.ProjectStatusActive,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func seedContribution(t *testing.T, db *gorm.DB, roundId, projectId int64, addr string, amount int64, eligible bool) {
	t.Helper()

	c := &model.ContributionModel{
		RoundId:             roundId,
		ProjectId:           projectId,
		Amount:              amount,
		IsQuadraticEligible: eligible,
	}
	if addr != "" {
		c.ContributorAddress = &addr
	}
	require.NoError(t, db.Create(c).Error)
}
