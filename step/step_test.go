package step_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/step"
)

func allGoodStatus() domain.PullRequestStatus {
	return domain.PullRequestStatus{
		ChecksStatus:  domain.ChecksStatusPass,
		ValidPRTitle:  true,
		Mergeable:     true,
		QAStatus:      domain.QaStatusPass,
		MergeStrategy: domain.MergeStrategyMerge,
	}
}

func TestChooseAllGood(t *testing.T) {
	assert.Equal(t, domain.StepAwaitingMerge, step.Choose(allGoodStatus()))
}

func TestChooseWipWinsOverEverythingElse(t *testing.T) {
	s := allGoodStatus()
	s.Wip = true
	s.ValidPRTitle = false
	s.Locked = true
	assert.Equal(t, domain.StepWip, step.Choose(s))
}

func TestChooseInvalidTitleBeforeChecks(t *testing.T) {
	s := allGoodStatus()
	s.ValidPRTitle = false
	s.ChecksStatus = domain.ChecksStatusWaiting
	assert.Equal(t, domain.StepAwaitingChanges, step.Choose(s))
}

func TestChooseMissingRequiredReviewBeforeOptional(t *testing.T) {
	s := allGoodStatus()
	s.NeededReviewersCount = 1
	s.MissingRequiredReviewers = []string{"alice"}
	assert.Equal(t, domain.StepAwaitingRequiredReview, step.Choose(s))
}

func TestChooseMissingOptionalReviews(t *testing.T) {
	s := allGoodStatus()
	s.NeededReviewersCount = 2
	s.ApprovedReviewers = []string{"alice"}
	assert.Equal(t, domain.StepAwaitingReview, step.Choose(s))
}

func TestChooseQAWaitingAfterReviewsSatisfied(t *testing.T) {
	s := allGoodStatus()
	s.QAStatus = domain.QaStatusWaiting
	assert.Equal(t, domain.StepAwaitingQa, step.Choose(s))
}

func TestChooseLockedIsLastResort(t *testing.T) {
	s := allGoodStatus()
	s.Locked = true
	assert.Equal(t, domain.StepLocked, step.Choose(s))
}

func TestChooseNotMergeableIsAwaitingChanges(t *testing.T) {
	s := allGoodStatus()
	s.Mergeable = false
	assert.Equal(t, domain.StepAwaitingChanges, step.Choose(s))
}

func TestChooseMergedPRIgnoresMergeable(t *testing.T) {
	s := allGoodStatus()
	s.Mergeable = false
	s.Merged = true
	assert.Equal(t, domain.StepAwaitingMerge, step.Choose(s))
}

func TestGenerateMessageAllGood(t *testing.T) {
	state, title, msg := step.GenerateMessage(allGoodStatus())
	assert.Equal(t, domain.CommitStatusSuccess, state)
	assert.Equal(t, step.StatusTitle, title)
	assert.Equal(t, "All good.", msg)
}

func TestGenerateMessageMissingRequiredReviewsListsNames(t *testing.T) {
	s := allGoodStatus()
	s.MissingRequiredReviewers = []string{"alice", "bob"}
	state, _, msg := step.GenerateMessage(s)
	assert.Equal(t, domain.CommitStatusPending, state)
	assert.Equal(t, "Waiting on mandatory reviews (alice, bob)", msg)
}

func TestGenerateMessageChecksFail(t *testing.T) {
	s := allGoodStatus()
	s.ChecksStatus = domain.ChecksStatusFail
	state, _, msg := step.GenerateMessage(s)
	assert.Equal(t, domain.CommitStatusFailure, state)
	assert.Equal(t, "Checks failed. Please fix.", msg)
}
