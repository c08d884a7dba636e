package server

import (
	"net/http"
	"time"
)

// handleHealth reports 200 only when the storage and lock backends
// both respond.
func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, err := deps.Store.RepositoriesAll(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"storage": "unavailable"})
			return
		}

		handle, _, err := deps.Lock.WaitLockResource(ctx, "healthcheck", 200*time.Millisecond)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"lock": "unavailable"})
			return
		}
		if handle != nil {
			_ = handle.Release(ctx)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
