// Package step implements the pure step chooser and commit-status
// message generator. Both functions are total over
// domain.PullRequestStatus and never perform I/O.
package step

import (
	"strings"

	"github.com/sharingcloud/prbot/domain"
)

// Choose returns the single StepLabel reflecting where the pull
// request stands, in a fixed precedence order.
func Choose(s domain.PullRequestStatus) domain.StepLabel {
	switch {
	case s.Wip:
		return domain.StepWip
	case !s.ValidPRTitle:
		return domain.StepAwaitingChanges
	case s.ChecksStatus == domain.ChecksStatusFail:
		return domain.StepAwaitingChanges
	case s.ChecksStatus == domain.ChecksStatusWaiting:
		return domain.StepAwaitingChecks
	}

	switch {
	case s.ChangesRequired() || (!s.Mergeable && !s.Merged):
		return domain.StepAwaitingChanges
	case s.MissingRequiredReviews():
		return domain.StepAwaitingRequiredReview
	case s.MissingReviews():
		return domain.StepAwaitingReview
	case s.QAStatus == domain.QaStatusFail:
		return domain.StepAwaitingChanges
	case s.QAStatus == domain.QaStatusWaiting:
		return domain.StepAwaitingQa
	case s.Locked:
		return domain.StepLocked
	default:
		return domain.StepAwaitingMerge
	}
}

// StatusTitle is the fixed commit-status title the bot publishes.
const StatusTitle = "Validation"

// GenerateMessage returns the commit-status (state, title, message)
// triple for s.
func GenerateMessage(s domain.PullRequestStatus) (domain.CommitStatusState, string, string) {
	switch {
	case s.Wip:
		return domain.CommitStatusFailure, StatusTitle, "PR is still in WIP"
	case !s.ValidPRTitle:
		return domain.CommitStatusFailure, StatusTitle, "PR title does not match regex."
	case s.ChecksStatus == domain.ChecksStatusFail:
		return domain.CommitStatusFailure, StatusTitle, "Checks failed. Please fix."
	case s.ChecksStatus == domain.ChecksStatusWaiting:
		return domain.CommitStatusPending, StatusTitle, "Waiting for checks"
	case s.ChangesRequired():
		return domain.CommitStatusFailure, StatusTitle, "Changes required"
	case !s.Mergeable && !s.Merged:
		return domain.CommitStatusFailure, StatusTitle, "Pull request is not mergeable."
	case s.MissingRequiredReviews():
		return domain.CommitStatusPending, StatusTitle, "Waiting on mandatory reviews (" + strings.Join(s.MissingRequiredReviewers, ", ") + ")"
	case s.MissingReviews():
		return domain.CommitStatusPending, StatusTitle, "Waiting on reviews"
	case s.QAStatus == domain.QaStatusFail:
		return domain.CommitStatusFailure, StatusTitle, "QA failed. Please fix."
	case s.QAStatus == domain.QaStatusWaiting:
		return domain.CommitStatusPending, StatusTitle, "Waiting for QA"
	case s.Locked:
		return domain.CommitStatusFailure, StatusTitle, "PR is locked"
	default:
		return domain.CommitStatusSuccess, StatusTitle, "All good."
	}
}
