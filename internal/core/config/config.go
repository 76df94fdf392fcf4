package config

import (
	"time"

	"github.com/coinflow/payments/internal/core/domain"
	redisclient "github.com/coinflow/payments/internal/infra/redis"
	"github.com/coinflow/payments/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
	Redis      redisclient.Config `yaml:"redis"`
	Networks   []NetworkConfig    `yaml:"networks"`
	Routing    map[string]string  `yaml:"routing"` // currency -> network
	Rates      map[string]string  `yaml:"rates"`   // currency -> USD rate
	Compliance ComplianceConfig   `yaml:"compliance"`
	Fees       FeeConfig          `yaml:"fees"`
	Payments   PaymentConfig      `yaml:"payments"`
	Billing    BillingConfig      `yaml:"billing"`
	Notify     NotifyConfig       `yaml:"notify"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NetworkConfig holds settings for one supported blockchain.
type NetworkConfig struct {
	Name                  domain.Network         `yaml:"name"`
	Type                  string                 `yaml:"type"` // evm, bitcoin
	RequiredConfirmations uint64                 `yaml:"required_confirmations"`
	Providers             []ProviderConfig       `yaml:"providers"`
	Tokens                map[string]TokenConfig `yaml:"tokens"` // currency -> contract override
}

// TokenConfig overrides the built-in token contract for a currency on
// this network.
type TokenConfig struct {
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TierLimits caps one risk tier's transaction volume.
type TierLimits struct {
	Single  string `yaml:"single"`
	Daily   string `yaml:"daily"`
	Monthly string `yaml:"monthly"`
}

// ComplianceConfig holds the risk-tier limit table and EDD threshold.
// Externally adjustable so limit changes never require a redeploy.
type ComplianceConfig struct {
	Limits       map[string]TierLimits `yaml:"limits"` // risk level -> caps
	EDDThreshold string                `yaml:"edd_threshold"`
	AMLMediumAt  string                `yaml:"aml_medium_at"`
	AMLHighAt    string                `yaml:"aml_high_at"`
}

// FeeConfig holds plan fee percentages and the on-chain sync settings.
type FeeConfig struct {
	Percentages map[string]string `yaml:"percentages"` // plan -> percent
	Contract    FeeContractConfig `yaml:"contract"`
}

// FeeContractConfig configures the privileged on-chain fee-rate push.
type FeeContractConfig struct {
	Address       string        `yaml:"address"`
	Network       string        `yaml:"network"`
	SyncCooldown  time.Duration `yaml:"sync_cooldown"`
	RetryAttempts uint64        `yaml:"retry_attempts"`
}

// PaymentConfig drives the background lifecycle workers.
type PaymentConfig struct {
	PendingExpiry   time.Duration `yaml:"pending_expiry"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
	ConvertURL      string        `yaml:"convert_url"` // auto-conversion service endpoint
}

// BillingConfig drives the subscription billing rollover worker.
type BillingConfig struct {
	RolloverInterval time.Duration `yaml:"rollover_interval"`
	PeriodDays       int           `yaml:"period_days"`
}

// NotifyConfig configures the lifecycle event collaborators.
type NotifyConfig struct {
	Channel    string        `yaml:"channel"`     // redis pub/sub channel
	EmailURL   string        `yaml:"email_url"`   // email collaborator endpoint
	WebhookURL string        `yaml:"webhook_url"` // realtime notification service
	Timeout    time.Duration `yaml:"timeout"`
}
