package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/flagx"
	"github.com/dmitrijs2005/relaykeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. Interval fields use timex.Duration, which accepts both
// string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON config
// files; after unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN         string         `json:"database_dsn"`
	XrayAPIAddr         string         `json:"xray_api_addr"`
	XrayInboundTag      string         `json:"xray_inbound_tag"`
	XrayServiceName     string         `json:"xray_service_name"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	HealthInterval      timex.Duration `json:"health_interval"`
	ProxyCallTimeout    timex.Duration `json:"proxy_call_timeout"`
	DispatchConcurrency int            `json:"dispatch_concurrency"`
	DispatchMaxRetries  int            `json:"dispatch_max_retries"`
	KeyTTL              timex.Duration `json:"key_ttl"`
	KeyDataLimitBytes   int64          `json:"key_data_limit_bytes"`
	ServerAddr          string         `json:"server_addr"`
	ServerPort          int            `json:"server_port"`
	RealityPublicKey    string         `json:"reality_public_key"`
	RealitySNI          string         `json:"reality_sni"`
	RealityShortID      string         `json:"reality_short_id"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. Fields left at their zero value in the
// file keep their current (default or env-provided) values. If the file
// cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.XrayAPIAddr != "" {
		config.XrayAPIAddr = c.XrayAPIAddr
	}
	if c.XrayInboundTag != "" {
		config.XrayInboundTag = c.XrayInboundTag
	}
	if c.XrayServiceName != "" {
		config.XrayServiceName = c.XrayServiceName
	}
	if c.SyncInterval != 0 {
		config.SyncInterval = time.Duration(c.SyncInterval)
	}
	if c.HealthInterval != 0 {
		config.HealthInterval = time.Duration(c.HealthInterval)
	}
	if c.ProxyCallTimeout != 0 {
		config.ProxyCallTimeout = time.Duration(c.ProxyCallTimeout)
	}
	if c.DispatchConcurrency != 0 {
		config.DispatchConcurrency = c.DispatchConcurrency
	}
	if c.DispatchMaxRetries != 0 {
		config.DispatchMaxRetries = c.DispatchMaxRetries
	}
	if c.KeyTTL != 0 {
		config.KeyTTL = time.Duration(c.KeyTTL)
	}
	if c.KeyDataLimitBytes != 0 {
		config.KeyDataLimitBytes = c.KeyDataLimitBytes
	}
	if c.ServerAddr != "" {
		config.ServerAddr = c.ServerAddr
	}
	if c.ServerPort != 0 {
		config.ServerPort = c.ServerPort
	}
	if c.RealityPublicKey != "" {
		config.RealityPublicKey = c.RealityPublicKey
	}
	if c.RealitySNI != "" {
		config.RealitySNI = c.RealitySNI
	}
	if c.RealityShortID != "" {
		config.RealityShortID = c.RealityShortID
	}
}
