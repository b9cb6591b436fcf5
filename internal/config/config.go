package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration. Workflow and connector
// definitions live in their own files under Definitions.Dir; this covers the
// service itself.
type Config struct {
	Server struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`
	Agent struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"agent"`
	Definitions struct {
		Dir            string `mapstructure:"dir"`
		WorkflowsFile  string `mapstructure:"workflows_file"`
		ConnectorsFile string `mapstructure:"connectors_file"`
		CatalogFile    string `mapstructure:"catalog_file"`
	} `mapstructure:"definitions"`
	Audit struct {
		Backend string `mapstructure:"backend"` // log | postgres
		DSN     string `mapstructure:"dsn"`
	} `mapstructure:"audit"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// Load reads the configuration from config.yaml and the environment.
// Environment variables use the FIELDBRIDGE_ prefix (FIELDBRIDGE_AGENT_TOKEN
// overrides agent.token).
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("FIELDBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", ":5000")
	v.SetDefault("definitions.dir", "config")
	v.SetDefault("definitions.workflows_file", "workflows.yaml")
	v.SetDefault("definitions.connectors_file", "connectors.yaml")
	v.SetDefault("definitions.catalog_file", "icd10_mini.yaml")
	v.SetDefault("audit.backend", "log")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and environment carry it.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
