package prerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharingcloud/prbot/prerr"
)

func TestIsNotFoundMatchesWrappedNotFoundErrors(t *testing.T) {
	err := prerr.NotFound("pull_request", nil)
	assert.True(t, prerr.IsNotFound(err))
	assert.False(t, prerr.IsNotFound(errors.New("boom")))

	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, prerr.IsNotFound(wrapped))
}

func TestKindOfReturnsFalseForUntaggedErrors(t *testing.T) {
	_, ok := prerr.KindOf(errors.New("boom"))
	assert.False(t, ok)

	kind, ok := prerr.KindOf(prerr.ReferentialIntegrity("repository", "still has pull requests"))
	assert.True(t, ok)
	assert.Equal(t, prerr.KindReferentialIntegrity, kind)
}

func TestErrorIsMatchesSameKindAndEntityIgnoringMessage(t *testing.T) {
	a := prerr.NotFound("pull_request", nil)
	b := prerr.NotFound("pull_request", errors.New("different cause"))
	c := prerr.NotFound("repository", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}
