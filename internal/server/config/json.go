package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/kaplunov-alex/PWMgr/internal/flagx"
	"github.com/kaplunov-alex/PWMgr/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration, so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	SessionIdleTTL    timex.Duration `json:"session_idle_ttl"`
	TokenTTL          timex.Duration `json:"token_ttl"`
	MaxAttempts       int            `json:"max_attempts"`
	LockoutDuration   timex.Duration `json:"lockout_duration"`
	RateLimitIdleTTL  timex.Duration `json:"rate_limit_idle_ttl"`
	SweepInterval     timex.Duration `json:"sweep_interval"`
	RequestsPerSecond float64        `json:"requests_per_second"`
	RequestBurst      int            `json:"request_burst"`
	PBKDF2Iterations  int            `json:"pbkdf2_iterations"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	LogLevel          string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Keys missing from the file keep their current value. An unreadable or
// invalid file panics, as a misconfigured server must not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionIdleTTL, c.SessionIdleTTL)
	setDuration(&config.TokenTTL, c.TokenTTL)
	setInt(&config.MaxAttempts, c.MaxAttempts)
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setDuration(&config.RateLimitIdleTTL, c.RateLimitIdleTTL)
	setDuration(&config.SweepInterval, c.SweepInterval)
	if c.RequestsPerSecond > 0 {
		config.RequestsPerSecond = c.RequestsPerSecond
	}
	setInt(&config.RequestBurst, c.RequestBurst)
	setInt(&config.PBKDF2Iterations, c.PBKDF2Iterations)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
