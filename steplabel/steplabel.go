// Package steplabel reconciles the single step label on a pull
// request's forge issue labels.
package steplabel

import (
	"context"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Write strips any pre-existing step label and appends desired,
// calling IssueLabelsReplaceAll only if the resulting set differs
// from what is currently on the pull request.
func Write(ctx context.Context, forge forgeapi.API, owner, name string, number uint64, desired domain.StepLabel) error {
	current, err := forge.IssueLabelsList(ctx, owner, name, number)
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(current))
	for _, l := range current {
		if _, ok := domain.ParseStepLabel(l); ok {
			continue
		}
		kept = append(kept, l)
	}
	if desired != "" {
		kept = append(kept, desired.String())
	}

	if sets.NewString(current...).Equal(sets.NewString(kept...)) {
		return nil
	}
	return forge.IssueLabelsReplaceAll(ctx, owner, name, number, kept)
}
