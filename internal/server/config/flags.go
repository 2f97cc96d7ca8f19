package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/unicore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics bind address
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-l string   log level
//	-n int      purchase transaction attempts
//	-r string   Redis URL
//	-L int      purchases per user per minute
//	-q string   RabbitMQ URL
//	-x string   RabbitMQ exchange
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-k string   history archive cron spec
//	-P string   trusted proxies (comma-separated CIDRs)
//
// Arguments not defined here (such as -c) are skipped.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.EndpointAddrMetrics, "m", config.EndpointAddrMetrics, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.IntVar(&config.PurchaseRetryAttempts, "n", config.PurchaseRetryAttempts, "purchase transaction attempts")

	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.IntVar(&config.PurchaseRateLimit, "L", config.PurchaseRateLimit, "purchases per user per minute")

	fs.StringVar(&config.RabbitMQURL, "q", config.RabbitMQURL, "RabbitMQ URL")
	fs.StringVar(&config.RabbitMQExchange, "x", config.RabbitMQExchange, "RabbitMQ exchange")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.ArchiveSchedule, "k", config.ArchiveSchedule, "history archive cron spec")
	fs.StringVar(&config.TrustedProxies, "P", config.TrustedProxies, "trusted proxies (comma-separated CIDRs)")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}
}
