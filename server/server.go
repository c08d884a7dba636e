// Package server assembles the bot's HTTP surface: the webhook
// endpoint, the external QA endpoint, the admin endpoints, health,
// metrics and the root welcome message.
package server

import (
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sharingcloud/prbot/command"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/lock"
	"github.com/sharingcloud/prbot/storage"
	"github.com/sharingcloud/prbot/webhook"
)

// Deps wires every capability the HTTP surface needs.
type Deps struct {
	Store   storage.Storage
	Forge   forgeapi.API
	Lock    lock.Lock
	Router  *webhook.Router
	Authz   command.Authorizer
	BotName string

	WebhookSecret     []byte
	SignatureHeader   string
	AdminPublicKeyPEM []byte
	ExternalKeyLookup ExternalPublicKeyLookup
}

// New builds the configured mux.Router for the bot's HTTP surface.
func New(deps Deps) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", handleWelcome).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth(deps)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.Handle("/webhook", webhook.RequireSignature(deps.WebhookSecret, deps.SignatureHeader, deps.Router)).Methods(http.MethodPost)

	r.Handle("/external/set-qa-status", handleExternalSetQAStatus(deps)).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(adminAuthMiddleware(deps.AdminPublicKeyPEM))
	admin.HandleFunc("/accounts/", handleAdminAccounts(deps)).Methods(http.MethodGet)
	admin.HandleFunc("/repositories/", handleAdminRepositories(deps)).Methods(http.MethodGet)
	admin.HandleFunc("/repositories/{id}/pull-request-rules/", handleAdminCreateRule(deps)).Methods(http.MethodPost)
	admin.HandleFunc("/repositories/{id}/pull-request-rules/{rule_name}/", handleAdminDeleteRule(deps)).Methods(http.MethodDelete)
	admin.HandleFunc("/external-accounts/", handleAdminExternalAccounts(deps)).Methods(http.MethodGet)

	return r
}

// Handler wraps r with gzip compression.
func Handler(r *mux.Router) http.Handler {
	return gziphandler.GzipHandler(r)
}

func handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome on prbot!"})
}
