package logic

import (
	"math/big"
	"sort"
	"time"

	"github.com/blues/qfs/internal/model"
)

// 二次方配捐计算器。输入是一个轮次的捐款快照，输出每个项目的配捐金额。
// 全程使用大整数定点运算，杜绝二进制浮点带来的舍入漂移。

// weightScale 开方前的放大系数，保留最小单位以下的精度
const weightScale = 1_000_000

// ProjectAllocation 单个项目的配捐结果
type ProjectAllocation struct {
	ProjectId     int64
	MatchedAmount int64
	Weight        *big.Int
}

// QuadraticWeight 计算一个项目的二次方权重 S = (Σ sqrt(amount_i))^2
// 仅对具备配捐资格的捐款求和；big.Int.Sqrt 是精确的向下取整开方。
func QuadraticWeight(amounts []int64) *big.Int {
	sum := new(big.Int)
	for _, amount := range amounts {
		if amount <= 0 {
			continue
		}
		scaled := new(big.Int).Mul(big.NewInt(amount), big.NewInt(weightScale))
		sum.Add(sum, scaled.Sqrt(scaled))
	}
	return sum.Mul(sum, sum)
}

// ComputeAllocations 按权重比例分配配捐池
// matched(p) = matchingPool * S(p) / ΣS，向下取整到最小可转账单位；
// 因截断产生的余数补给权重最高的项目，权重相同时取项目ID最小者，
// 保证 Σ matched == matchingPool（ΣS 为 0 时不产生任何分配）。
func ComputeAllocations(roundId int64, matchingPool int64, contributions []model.ContributionModel) []model.AllocationModel {
	// 按项目聚合有配捐资格的捐款金额
	amountsByProject := make(map[int64][]int64)
	for _, c := range contributions {
		if !c.IsQuadraticEligible {
			continue
		}
		amountsByProject[c.ProjectId] = append(amountsByProject[c.ProjectId], c.Amount)
	}

	// 逐项目计算权重，固定按项目ID升序处理保证确定性
	projectIds := make([]int64, 0, len(amountsByProject))
	for id := range amountsByProject {
		projectIds = append(projectIds, id)
	}
	sort.Slice(projectIds, func(i, j int) bool { return projectIds[i] < projectIds[j] })

	totalWeight := new(big.Int)
	weights := make([]ProjectAllocation, 0, len(projectIds))
	for _, id := range projectIds {
		w := QuadraticWeight(amountsByProject[id])
		if w.Sign() == 0 {
			continue
		}
		weights = append(weights, ProjectAllocation{ProjectId: id, Weight: w})
		totalWeight.Add(totalWeight, w)
	}

	// 轮次内没有任何有效权重时不产生分配，这不是错误
	if totalWeight.Sign() == 0 || matchingPool <= 0 {
		return nil
	}

	// 按比例分配并截断，同时记录余数归属（最高权重，平手取最小ID）
	pool := big.NewInt(matchingPool)
	distributed := int64(0)
	topIdx := 0
	for i := range weights {
		matched := new(big.Int).Mul(pool, weights[i].Weight)
		matched.Quo(matched, totalWeight)
		weights[i].MatchedAmount = matched.Int64()
		distributed += weights[i].MatchedAmount

		if weights[i].Weight.Cmp(weights[topIdx].Weight) > 0 {
			topIdx = i
		}
	}

	if remainder := matchingPool - distributed; remainder > 0 {
		weights[topIdx].MatchedAmount += remainder
	}

	now := time.Now()
	allocations := make([]model.AllocationModel, 0, len(weights))
	for _, w := range weights {
		allocations = append(allocations, model.AllocationModel{
			RoundId:       roundId,
			ProjectId:     w.ProjectId,
			MatchedAmount: w.MatchedAmount,
			ComputedAt:    now,
		})
	}
	return allocations
}
