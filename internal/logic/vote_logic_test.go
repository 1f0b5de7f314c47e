package logic

import (
	"fmt"
	"testing"
	"time"

	"github.com/blues/qfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupVoting 准备一个处于捐款人投票阶段的提案，并给项目播种 donors 个捐款人
func setupVoting(t *testing.T, donors int) (*VoteLogic, *model.ProposalModel, []string) {
	t.Helper()

	db := newTestDB(t)
	pool := seedPool(t, db)
	project := seedProject(t, db, &pool.Id)

	now := time.Now()
	round := seedRound(t, db, pool.Id, now.Add(-time.Hour), now.Add(time.Hour), 0)

	addrs := make([]string, 0, donors)
	for i := 0; i < donors; i++ {
		addr := fmt.Sprintf("0xdonor%d", i+1)
		seedContribution(t, db, round.Id, project.Id, addr, 100, true)
		addrs = append(addrs, addr)
	}

	votingEnd := now.Add(72 * time.Hour)
	proposal := &model.ProposalModel{
		ProjectId:     project.Id,
		Amount:        500,
		TransferType:  model.TransferTypeBank,
		Status:        model.ProposalStatusPendingDonorApproval,
		VotingEndTime: &votingEnd,
	}
	require.NoError(t, db.Create(proposal).Error)

	logic := NewVoteLogic(db, QuorumConfig{ApproveRatio: 0.51, MinParticipation: 5})
	return logic, proposal, addrs
}

func TestCastVoteRequiresContribution(t *testing.T) {
	logic, proposal, _ := setupVoting(t, 1)

	_, err := logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: "0xstranger",
		VoteType:     model.VoteTypeYes,
	})
	assert.ErrorIs(t, err, ErrNotEligibleVoter)
}

func TestCastVoteOnePerVoter(t *testing.T) {
	logic, proposal, addrs := setupVoting(t, 1)

	_, err := logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[0],
		VoteType:     model.VoteTypeYes,
	})
	require.NoError(t, err)

	_, err = logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[0],
		VoteType:     model.VoteTypeNo,
	})
	assert.ErrorIs(t, err, ErrDuplicateVote)
}

func TestCastVoteApprovesAtQuorum(t *testing.T) {
	logic, proposal, addrs := setupVoting(t, 5)

	// 前四票赞成：比例已达标但参与度不足，提案保持投票中
	for i := 0; i < 4; i++ {
		updated, err := logic.CastVote(&model.VoteModel{
			ProposalId:   proposal.Id,
			VoterAddress: addrs[i],
			VoteType:     model.VoteTypeYes,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusPendingDonorApproval, updated.Status)
	}

	// 第五票补齐参与度，提案立即转为通过
	updated, err := logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[4],
		VoteType:     model.VoteTypeYes,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusApproved, updated.Status)
}

func TestAbstainCountsTowardParticipationOnly(t *testing.T) {
	logic, proposal, addrs := setupVoting(t, 5)

	votes := []model.VoteType{
		model.VoteTypeYes, model.VoteTypeYes, model.VoteTypeYes,
		model.VoteTypeAbstain,
	}
	for i, vt := range votes {
		_, err := logic.CastVote(&model.VoteModel{
			ProposalId:   proposal.Id,
			VoterAddress: addrs[i],
			VoteType:     vt,
		})
		require.NoError(t, err)
	}

	// 第五票弃权：参与度5，比例 3/3，通过
	updated, err := logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[4],
		VoteType:     model.VoteTypeAbstain,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusApproved, updated.Status)

	_, tally, err := logic.GetProposalVotes(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tally.Yes)
	assert.Equal(t, int64(2), tally.Abstain)
	assert.Equal(t, int64(5), tally.Participation)
	assert.Equal(t, "100", tally.YesPercentage.String())
}

func TestCastVoteAfterDeadline(t *testing.T) {
	logic, proposal, addrs := setupVoting(t, 5)

	_, err := logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[0],
		VoteType:     model.VoteTypeYes,
	})
	require.NoError(t, err)

	// 窗口过后迟到的票在边界就被拒绝，不依赖关窗任务的调度间隔
	expired := time.Now().Add(-time.Minute)
	require.NoError(t, logic.db.Model(&model.ProposalModel{}).
		Where("id = ?", proposal.Id).
		Update("voting_end_time", &expired).Error)

	_, err = logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[1],
		VoteType:     model.VoteTypeYes,
	})
	assert.ErrorIs(t, err, ErrVotingClosed)

	// 提案仍留给关窗操作裁决
	var reloaded model.ProposalModel
	require.NoError(t, logic.db.First(&reloaded, proposal.Id).Error)
	assert.Equal(t, model.ProposalStatusPendingDonorApproval, reloaded.Status)
}

func TestCloseVotingBelowQuorumRejects(t *testing.T) {
	logic, proposal, addrs := setupVoting(t, 3)

	for _, addr := range addrs {
		_, err := logic.CastVote(&model.VoteModel{
			ProposalId:   proposal.Id,
			VoterAddress: addr,
			VoteType:     model.VoteTypeYes,
		})
		require.NoError(t, err)
	}

	closed, err := logic.CloseVoting(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusRejected, closed.Status)

	// 已裁决的提案不能再关一次
	_, err = logic.CloseVoting(proposal.Id)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCastVoteApprovesOnMajorityWithDissent(t *testing.T) {
	logic, proposal, addrs := setupVoting(t, 5)

	votes := []model.VoteType{
		model.VoteTypeNo, model.VoteTypeYes, model.VoteTypeYes,
		model.VoteTypeNo,
	}
	for i, vt := range votes {
		updated, err := logic.CastVote(&model.VoteModel{
			ProposalId:   proposal.Id,
			VoterAddress: addrs[i],
			VoteType:     vt,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusPendingDonorApproval, updated.Status)
	}

	// 第五票赞成：3/5 = 60%，过半即通过
	updated, err := logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[4],
		VoteType:     model.VoteTypeYes,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusApproved, updated.Status)

	// 已通过的提案不接受补票
	_, err = logic.CastVote(&model.VoteModel{
		ProposalId:   proposal.Id,
		VoterAddress: addrs[0],
		VoteType:     model.VoteTypeYes,
	})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}
