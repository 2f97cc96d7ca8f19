package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/unicore/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Zero values mean "not set" and keep the value already in Config.
type JsonConfig struct {
	EndpointAddrGRPC      string `json:"endpoint_addr_grpc"`
	EndpointAddrMetrics   string `json:"endpoint_addr_metrics"`
	DatabaseDSN           string `json:"database_dsn"`
	SecretKey             string `json:"secret_key"`
	LogLevel              string `json:"log_level"`
	PurchaseRetryAttempts int    `json:"purchase_retry_attempts"`
	RedisURL              string `json:"redis_url"`
	RedisPrefix           string `json:"redis_prefix"`
	PurchaseRateLimit     int    `json:"purchase_rate_limit"`
	RabbitMQURL           string `json:"rabbitmq_url"`
	RabbitMQExchange      string `json:"rabbitmq_exchange"`
	S3RootUser            string `json:"s3_root_user"`
	S3RootPassword        string `json:"s3_root_password"`
	S3Bucket              string `json:"s3_bucket"`
	S3Region              string `json:"s3_region"`
	S3BaseEndpoint        string `json:"s3_base_endpoint"`
	ArchiveSchedule       string `json:"archive_schedule"`
	TrustedProxies        string `json:"trusted_proxies"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrMetrics, c.EndpointAddrMetrics)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setInt(&config.PurchaseRetryAttempts, c.PurchaseRetryAttempts)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.RedisPrefix, c.RedisPrefix)
	setInt(&config.PurchaseRateLimit, c.PurchaseRateLimit)
	setString(&config.RabbitMQURL, c.RabbitMQURL)
	setString(&config.RabbitMQExchange, c.RabbitMQExchange)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.ArchiveSchedule, c.ArchiveSchedule)
	setString(&config.TrustedProxies, c.TrustedProxies)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
