// Package config loads the bot's frozen Config from a namespaced
// BOT_* environment. The core never reads the environment directly;
// cmd/prbot loads Config once at startup and threads it through.
package config

import (
	"github.com/kelseyhightower/envconfig"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
)

const envPrefix = "bot"

// Config is the frozen, validated configuration the core consumes.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Lock    LockConfig
	Forge   ForgeConfig
	Defaults DefaultsConfig
	Debug   bool `envconfig:"test_debug_mode" default:"false"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	BindIP        string `envconfig:"server_bind_ip" default:"0.0.0.0"`
	BindPort      uint16 `envconfig:"server_bind_port" default:"8080"`
	Workers       int    `envconfig:"server_workers" default:"4"`
	WebhookSecret string `envconfig:"server_webhook_secret" default:""`
	AdminPublicKey  string `envconfig:"server_admin_public_key" default:""`
	AdminPrivateKey string `envconfig:"server_admin_private_key" default:""`
}

// StorageConfig configures the persistence backend.
type StorageConfig struct {
	Driver           string `envconfig:"storage_driver" default:"memory"`
	ConnectionString string `envconfig:"storage_connection_string" default:""`
}

// LockConfig configures the advisory-lock backend.
type LockConfig struct {
	Driver  string `envconfig:"lock_driver" default:"memory"`
	Address string `envconfig:"lock_address" default:""`
}

// ForgeConfig configures the forge-API adapter.
type ForgeConfig struct {
	Driver         string `envconfig:"forge_driver" default:"memory"`
	Endpoint       string `envconfig:"forge_endpoint" default:"https://api.github.com"`
	AppID          int64  `envconfig:"forge_app_id" default:"0"`
	InstallationID int64  `envconfig:"forge_installation_id" default:"0"`
	PrivateKey     string `envconfig:"forge_private_key" default:""`
	Token          string `envconfig:"forge_token" default:""`
	CIAppSlug      string `envconfig:"forge_ci_app_slug" default:"github-actions"`
	BotName        string `envconfig:"forge_bot_name" default:"prbot"`
	Host           string `envconfig:"forge_host" default:"github.com"`
	CacheDir       string `envconfig:"forge_cache_dir" default:""`
	CacheSizeMB    int64  `envconfig:"forge_cache_size_mb" default:"200"`
	TenorAPIKey    string `envconfig:"forge_tenor_api_key" default:""`
	TenorEndpoint  string `envconfig:"forge_tenor_endpoint" default:""`
}

// DefaultsConfig configures per-repository defaults applied on first
// contact.
type DefaultsConfig struct {
	MergeStrategy         string `envconfig:"default_merge_strategy" default:"merge"`
	NeededReviewersCount  uint64 `envconfig:"default_needed_reviewers_count" default:"2"`
	PRTitleValidationRegex string `envconfig:"default_pr_title_validation_regex" default:""`
	WaitForInitialChecks  bool   `envconfig:"default_wait_for_initial_checks" default:"false"`
}

// Load reads and validates Config from the environment.
func Load() (Config, error) {
	var c Config
	// Each group is processed under the bare prefix so its fields read
	// BOT_<tag> rather than BOT_<GROUP>_<tag>.
	for _, spec := range []interface{}{&c, &c.Server, &c.Storage, &c.Lock, &c.Forge, &c.Defaults} {
		if err := envconfig.Process(envPrefix, spec); err != nil {
			return Config{}, prerr.Config("load configuration", err)
		}
	}
	if !domain.MergeStrategy(c.Defaults.MergeStrategy).Valid() {
		return Config{}, prerr.Config("invalid default merge strategy: "+c.Defaults.MergeStrategy, nil)
	}
	return c, nil
}

// RepositoryDefaults builds the domain.Repository template used to
// seed new repositories.
func (c Config) RepositoryDefaults() domain.Repository {
	return domain.Repository{
		PRTitleValidationRegex: c.Defaults.PRTitleValidationRegex,
		DefaultStrategy:        domain.MergeStrategy(c.Defaults.MergeStrategy),
		DefaultNeededReviewers: c.Defaults.NeededReviewersCount,
		DefaultEnableQA:        true,
		DefaultEnableChecks:    true,
	}
}
