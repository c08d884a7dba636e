// Package commitstatus publishes the commit-status triple produced by
// step.GenerateMessage to the forge, skipping the write when the
// forge's combined status already matches.
package commitstatus

import (
	"context"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/step"
)

// Publish writes the status for status onto sha, unless the forge's
// combined status for the published context already matches.
func Publish(ctx context.Context, forge forgeapi.API, owner, name, sha string, s domain.PullRequestStatus) error {
	state, title, message := step.GenerateMessage(s)

	combined, err := forge.CombinedStatusGet(ctx, owner, name, sha)
	if err != nil {
		return err
	}

	if existing, ok := combined.Statuses[title]; ok {
		if existing.State == string(state) && existing.Desc == message {
			return nil
		}
	}

	return forge.StatusCreate(ctx, owner, name, sha, string(state), title, message, s.ChecksURL)
}
