package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/fittrack/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-m string   mode: development or production
//	-l string   log level
//	-s string   JWT HMAC secret
//	-t int      JWT validity, minutes
//	-k string   field encryption key
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Arguments that are not listed above are filtered out first, so -c/-config
// and flags of other components do not cause parse errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-m", "-l", "-s", "-t", "-k", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Mode, "m", config.Mode, "development or production")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "JWT secret key")
	jwtTTL := fs.Int("t", int(config.JWTTTL.Minutes()), "JWT validity (in minutes)")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "field encryption key")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// only when given: sub-minute TTLs from JSON or env would not survive the
	// round trip through minutes
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.JWTTTL = time.Duration(*jwtTTL) * time.Minute
		}
	})
	return nil
}
