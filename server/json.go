package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sharingcloud/prbot/prerr"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := prerr.KindOf(err); ok {
		switch kind {
		case prerr.KindNotFound:
			status = http.StatusNotFound
		case prerr.KindReferentialIntegrity:
			status = http.StatusConflict
		case prerr.KindAuth:
			status = http.StatusForbidden
		case prerr.KindCrypto:
			status = http.StatusUnauthorized
		case prerr.KindJSON:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
