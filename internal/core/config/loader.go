package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	for i := range cfg.Networks {
		if cfg.Networks[i].RequiredConfirmations == 0 {
			cfg.Networks[i].RequiredConfirmations = 12
		}
		for j := range cfg.Networks[i].Providers {
			if cfg.Networks[i].Providers[j].Timeout == 0 {
				cfg.Networks[i].Providers[j].Timeout = 10 * time.Second
			}
		}
	}

	if cfg.Payments.PendingExpiry == 0 {
		cfg.Payments.PendingExpiry = 15 * time.Minute
	}
	if cfg.Payments.SweepInterval == 0 {
		cfg.Payments.SweepInterval = time.Minute
	}
	if cfg.Payments.MonitorInterval == 0 {
		cfg.Payments.MonitorInterval = 15 * time.Second
	}

	if cfg.Fees.Contract.SyncCooldown == 0 {
		cfg.Fees.Contract.SyncCooldown = 5 * time.Minute
	}
	if cfg.Fees.Contract.RetryAttempts == 0 {
		cfg.Fees.Contract.RetryAttempts = 3
	}

	if cfg.Billing.RolloverInterval == 0 {
		cfg.Billing.RolloverInterval = time.Hour
	}
	if cfg.Billing.PeriodDays == 0 {
		cfg.Billing.PeriodDays = 30
	}

	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = "payments:events"
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 5 * time.Second
	}
}
