// Package gif implements the bot's gif search lookup, used by the
// "gif <query>" command. It proxies the forgeapi.API's GifSearch so
// the command executor does not need to know which third-party
// provider backs it.
package gif

import (
	"context"
	"math/rand"

	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/prerr"
)

// Random returns a single random result URL for query, or a NotFound
// error if the provider returned no hits.
func Random(ctx context.Context, forge forgeapi.API, r *rand.Rand, query string) (string, error) {
	results, err := forge.GifSearch(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", prerr.NotFound("gif", nil)
	}
	return results[r.Intn(len(results))].URL, nil
}
