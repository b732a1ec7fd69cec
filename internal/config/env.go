package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig mirrors Config with pointer fields so that only variables that
// are actually set in the environment overlay the defaults.
type envConfig struct {
	DatabaseDSN         *string        `envconfig:"DATABASE_DSN"`
	XrayAPIAddr         *string        `envconfig:"XRAY_API_ADDR"`
	XrayInboundTag      *string        `envconfig:"XRAY_INBOUND_TAG"`
	XrayServiceName     *string        `envconfig:"XRAY_SERVICE_NAME"`
	SyncInterval        *time.Duration `envconfig:"SYNC_INTERVAL"`
	HealthInterval      *time.Duration `envconfig:"HEALTH_INTERVAL"`
	ProxyCallTimeout    *time.Duration `envconfig:"PROXY_CALL_TIMEOUT"`
	DispatchConcurrency *int           `envconfig:"DISPATCH_CONCURRENCY"`
	DispatchMaxRetries  *int           `envconfig:"DISPATCH_MAX_RETRIES"`
	KeyTTL              *time.Duration `envconfig:"KEY_TTL"`
	KeyDataLimitBytes   *int64         `envconfig:"KEY_DATA_LIMIT_BYTES"`
	ServerAddr          *string        `envconfig:"SERVER_ADDR"`
	ServerPort          *int           `envconfig:"SERVER_PORT"`
	RealityPublicKey    *string        `envconfig:"REALITY_PUBLIC_KEY"`
	RealitySNI          *string        `envconfig:"REALITY_SNI"`
	RealityShortID      *string        `envconfig:"REALITY_SHORT_ID"`
}

// parseEnv overlays Config fields from RELAYKEEPER_-prefixed environment
// variables. Unset variables leave the current values untouched.
func parseEnv(config *Config) {
	e := &envConfig{}
	if err := envconfig.Process("relaykeeper", e); err != nil {
		panic(err)
	}

	if e.DatabaseDSN != nil {
		config.DatabaseDSN = *e.DatabaseDSN
	}
	if e.XrayAPIAddr != nil {
		config.XrayAPIAddr = *e.XrayAPIAddr
	}
	if e.XrayInboundTag != nil {
		config.XrayInboundTag = *e.XrayInboundTag
	}
	if e.XrayServiceName != nil {
		config.XrayServiceName = *e.XrayServiceName
	}
	if e.SyncInterval != nil {
		config.SyncInterval = *e.SyncInterval
	}
	if e.HealthInterval != nil {
		config.HealthInterval = *e.HealthInterval
	}
	if e.ProxyCallTimeout != nil {
		config.ProxyCallTimeout = *e.ProxyCallTimeout
	}
	if e.DispatchConcurrency != nil {
		config.DispatchConcurrency = *e.DispatchConcurrency
	}
	if e.DispatchMaxRetries != nil {
		config.DispatchMaxRetries = *e.DispatchMaxRetries
	}
	if e.KeyTTL != nil {
		config.KeyTTL = *e.KeyTTL
	}
	if e.KeyDataLimitBytes != nil {
		config.KeyDataLimitBytes = *e.KeyDataLimitBytes
	}
	if e.ServerAddr != nil {
		config.ServerAddr = *e.ServerAddr
	}
	if e.ServerPort != nil {
		config.ServerPort = *e.ServerPort
	}
	if e.RealityPublicKey != nil {
		config.RealityPublicKey = *e.RealityPublicKey
	}
	if e.RealitySNI != nil {
		config.RealitySNI = *e.RealitySNI
	}
	if e.RealityShortID != nil {
		config.RealityShortID = *e.RealityShortID
	}
}
