package config

import (
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by parseEnv, e.g.
// UNICORE_DATABASE_DSN.
const EnvPrefix = "UNICORE"

// parseEnv overlays values present in the environment.
func parseEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	strs := map[string]*string{
		"endpoint_addr_grpc":    &config.EndpointAddrGRPC,
		"endpoint_addr_metrics": &config.EndpointAddrMetrics,
		"database_dsn":          &config.DatabaseDSN,
		"secret_key":            &config.SecretKey,
		"log_level":             &config.LogLevel,
		"redis_url":             &config.RedisURL,
		"redis_prefix":          &config.RedisPrefix,
		"rabbitmq_url":          &config.RabbitMQURL,
		"rabbitmq_exchange":     &config.RabbitMQExchange,
		"s3_root_user":          &config.S3RootUser,
		"s3_root_password":      &config.S3RootPassword,
		"s3_bucket":             &config.S3Bucket,
		"s3_region":             &config.S3Region,
		"s3_base_endpoint":      &config.S3BaseEndpoint,
		"archive_schedule":      &config.ArchiveSchedule,
		"trusted_proxies":       &config.TrustedProxies,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"purchase_retry_attempts": &config.PurchaseRetryAttempts,
		"purchase_rate_limit":     &config.PurchaseRateLimit,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
}
