package logic

import (
	"math/big"
	"testing"

	"github.com/blues/qfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eligible(projectId, amount int64) model.ContributionModel {
	return model.ContributionModel{
		RoundId:             1,
		ProjectId:           projectId,
		Amount:              amount,
		IsQuadraticEligible: true,
	}
}

func TestQuadraticWeightFavorsBroadSupport(t *testing.T) {
	// 四个人各捐1的项目权重应是一个人捐4的项目的四倍
	broad := QuadraticWeight([]int64{1, 1, 1, 1})
	single := QuadraticWeight([]int64{4})

	ratio := new(big.Int).Quo(broad, single)
	assert.Equal(t, int64(4), ratio.Int64())
}

func TestComputeAllocationsBroadVsConcentrated(t *testing.T) {
	// 池子1000：[1,1,1,1] 对 [4]，按 16:4 的权重分成 800/200
	contributions := []model.ContributionModel{
		eligible(1, 1), eligible(1, 1), eligible(1, 1), eligible(1, 1),
		eligible(2, 4),
	}

	allocations := ComputeAllocations(1, 1000, contributions)
	require.Len(t, allocations, 2)

	assert.Equal(t, int64(1), allocations[0].ProjectId)
	assert.Equal(t, int64(800), allocations[0].MatchedAmount)
	assert.Equal(t, int64(2), allocations[1].ProjectId)
	assert.Equal(t, int64(200), allocations[1].MatchedAmount)
}

func TestComputeAllocationsConservation(t *testing.T) {
	contributions := []model.ContributionModel{
		eligible(1, 3), eligible(1, 7),
		eligible(2, 5),
		eligible(3, 13), eligible(3, 2), eligible(3, 2),
	}

	const pool = int64(997)
	allocations := ComputeAllocations(1, pool, contributions)
	require.NotEmpty(t, allocations)

	var total int64
	for _, a := range allocations {
		assert.GreaterOrEqual(t, a.MatchedAmount, int64(0))
		total += a.MatchedAmount
	}
	assert.Equal(t, pool, total)
}

func TestComputeAllocationsRemainderToLowestIdOnTie(t *testing.T) {
	// 两个项目权重相同，奇数池子的截断余数补给项目ID最小者
	contributions := []model.ContributionModel{
		eligible(7, 1),
		eligible(3, 1),
	}

	allocations := ComputeAllocations(1, 101, contributions)
	require.Len(t, allocations, 2)

	assert.Equal(t, int64(3), allocations[0].ProjectId)
	assert.Equal(t, int64(51), allocations[0].MatchedAmount)
	assert.Equal(t, int64(7), allocations[1].ProjectId)
	assert.Equal(t, int64(50), allocations[1].MatchedAmount)
}

func TestComputeAllocationsIgnoresIneligible(t *testing.T) {
	contributions := []model.ContributionModel{
		eligible(1, 100),
		{RoundId: 1, ProjectId: 2, Amount: 1000000, IsQuadraticEligible: false},
	}

	allocations := ComputeAllocations(1, 500, contributions)
	require.Len(t, allocations, 1)
	assert.Equal(t, int64(1), allocations[0].ProjectId)
	assert.Equal(t, int64(500), allocations[0].MatchedAmount)
}

func TestComputeAllocationsNoEligibleWeight(t *testing.T) {
	contributions := []model.ContributionModel{
		{RoundId: 1, ProjectId: 1, Amount: 100, IsQuadraticEligible: false},
	}

	assert.Nil(t, ComputeAllocations(1, 1000, contributions))
	assert.Nil(t, ComputeAllocations(1, 1000, nil))
	assert.Nil(t, ComputeAllocations(1, 0, []model.ContributionModel{eligible(1, 100)}))
}
