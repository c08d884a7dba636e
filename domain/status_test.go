package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharingcloud/prbot/domain"
)

func TestMissingReviewsComparesApprovedCountAgainstNeeded(t *testing.T) {
	s := domain.PullRequestStatus{ApprovedReviewers: []string{"alice"}, NeededReviewersCount: 2}
	assert.True(t, s.MissingReviews())

	s.ApprovedReviewers = append(s.ApprovedReviewers, "bob")
	assert.False(t, s.MissingReviews())
}

func TestMissingRequiredReviewsReflectsNonEmptyList(t *testing.T) {
	assert.False(t, domain.PullRequestStatus{}.MissingRequiredReviews())
	assert.True(t, domain.PullRequestStatus{MissingRequiredReviewers: []string{"alice"}}.MissingRequiredReviews())
}

func TestChangesRequiredReflectsNonEmptyList(t *testing.T) {
	assert.False(t, domain.PullRequestStatus{}.ChangesRequired())
	assert.True(t, domain.PullRequestStatus{ChangesRequiredReviewers: []string{"bob"}}.ChangesRequired())
}
