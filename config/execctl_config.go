package config

import "github.com/caarlos0/env/v6"

// ExecCtlConfig is the daemon's typed startup configuration, bound from
// process environment variables via struct tags. It layers on top of the
// base Configuration/Properties machinery in this package rather than
// replacing it: Properties still backs anything read from a config file,
// this struct only owns what the daemon needs before it can even open one.
type ExecCtlConfig struct {
	// ListenAddr is the address the transport HTTP server binds to.
	ListenAddr string `env:"EXECCTL_LISTEN_ADDR" envDefault:":8080"`
	// StoreDSN is the sqlite data source name the durable store opens.
	StoreDSN string `env:"EXECCTL_STORE_DSN" envDefault:"execctl.db"`
	// CoordinatorURL is the websocket address of the cluster coordinator.
	CoordinatorURL string `env:"EXECCTL_COORDINATOR_URL,required"`
	// StateStoreConnectionName is the moderator gate's default value for
	// the state-store connection injected into every check; ConfigFile can
	// override it without a restart via Watcher.
	StateStoreConnectionName string `env:"EXECCTL_STATE_STORE_CONN" envDefault:"state-store"`
	// MinAvailableWorkers is the allocator's default admission threshold.
	MinAvailableWorkers int `env:"EXECCTL_MIN_AVAILABLE_WORKERS" envDefault:"2"`
	// ConfigFile, if set, is watched by Watcher for hot-reloadable settings.
	ConfigFile string `env:"EXECCTL_CONFIG_FILE" envDefault:""`
	// CredentialStoreFile, if set, points at a secrets.NewLocalStore file
	// holding the coordinator's bearer token under CoordinatorCredentialKey.
	// Left empty, the daemon dials the coordinator unauthenticated.
	CredentialStoreFile string `env:"EXECCTL_CREDENTIAL_STORE_FILE" envDefault:""`
	// CredentialStoreKey decrypts CredentialStoreFile.
	CredentialStoreKey string `env:"EXECCTL_CREDENTIAL_STORE_KEY" envDefault:""`
	// CoordinatorCredentialKey names the credential within the store that
	// holds the coordinator's bearer token.
	CoordinatorCredentialKey string `env:"EXECCTL_COORDINATOR_CREDENTIAL_KEY" envDefault:"coordinator"`
}

// Load binds an ExecCtlConfig from the process environment.
func Load() (*ExecCtlConfig, error) {
	cfg := &ExecCtlConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
