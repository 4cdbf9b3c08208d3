package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fittrack/internal/timex"
)

// parseEnv overlays environment variables onto config. Variables that are
// unset leave the current value alone; malformed values are an error.
//
//	FITTRACK_ADDR, DATABASE_DSN, FITTRACK_MODE, FITTRACK_LOG_LEVEL
//	JWT_SECRET, JWT_EXPIRES_IN ("1d", "12h"), COOKIE_SECURE
//	ENCRYPTION_KEY, ENCRYPTION_KEY_MIN_LENGTH
//	S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PRESIGN_TTL
//	RATE_LIMIT_RPS, RATE_LIMIT_BURST
//	OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("FITTRACK_ADDR", &config.HTTPAddr)
	e.str("DATABASE_DSN", &config.DatabaseDSN)
	e.str("FITTRACK_MODE", &config.Mode)
	e.str("FITTRACK_LOG_LEVEL", &config.LogLevel)
	e.str("JWT_SECRET", &config.JWTSecret)
	e.duration("JWT_EXPIRES_IN", &config.JWTTTL)
	e.boolean("COOKIE_SECURE", &config.CookieSecure)
	e.str("ENCRYPTION_KEY", &config.EncryptionKey)
	e.integer("ENCRYPTION_KEY_MIN_LENGTH", &config.EncryptionKeyMinLength)
	e.str("S3_ACCESS_KEY", &config.S3AccessKey)
	e.str("S3_SECRET_KEY", &config.S3SecretKey)
	e.str("S3_BUCKET", &config.S3Bucket)
	e.str("S3_REGION", &config.S3Region)
	e.str("S3_ENDPOINT", &config.S3BaseEndpoint)
	e.duration("S3_PRESIGN_TTL", &config.S3PresignTTL)
	e.float("RATE_LIMIT_RPS", &config.RateLimitRPS)
	e.integer("RATE_LIMIT_BURST", &config.RateLimitBurst)
	e.str("OTEL_EXPORTER_OTLP_ENDPOINT", &config.OTLPEndpoint)
	e.boolean("OTEL_EXPORTER_OTLP_INSECURE", &config.OTLPInsecure)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	if e.lookup == nil {
		return "", false
	}
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
