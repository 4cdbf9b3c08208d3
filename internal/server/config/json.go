package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fittrack/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Only keys present in
// the file override the current values, so a partial file is fine.
type JsonConfig struct {
	HTTPAddr               *string         `json:"http_addr"`
	DatabaseDSN            *string         `json:"database_dsn"`
	Mode                   *string         `json:"mode"`
	LogLevel               *string         `json:"log_level"`
	JWTSecret              *string         `json:"jwt_secret"`
	JWTTTL                 *timex.Duration `json:"jwt_ttl"`
	CookieSecure           *bool           `json:"cookie_secure"`
	EncryptionKey          *string         `json:"encryption_key"`
	EncryptionKeyMinLength *int            `json:"encryption_key_min_length"`
	S3AccessKey            *string         `json:"s3_access_key"`
	S3SecretKey            *string         `json:"s3_secret_key"`
	S3Bucket               *string         `json:"s3_bucket"`
	S3Region               *string         `json:"s3_region"`
	S3BaseEndpoint         *string         `json:"s3_base_endpoint"`
	S3PresignTTL           *timex.Duration `json:"s3_presign_ttl"`
	RateLimitRPS           *float64        `json:"rate_limit_rps"`
	RateLimitBurst         *int            `json:"rate_limit_burst"`
	OTLPEndpoint           *string         `json:"otlp_endpoint"`
	OTLPInsecure           *bool           `json:"otlp_insecure"`
}

func parseJson(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.Mode, c.Mode)
	setIf(&config.LogLevel, c.LogLevel)
	setIf(&config.JWTSecret, c.JWTSecret)
	setIf(&config.CookieSecure, c.CookieSecure)
	setIf(&config.EncryptionKey, c.EncryptionKey)
	setIf(&config.EncryptionKeyMinLength, c.EncryptionKeyMinLength)
	setIf(&config.S3AccessKey, c.S3AccessKey)
	setIf(&config.S3SecretKey, c.S3SecretKey)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.RateLimitRPS, c.RateLimitRPS)
	setIf(&config.RateLimitBurst, c.RateLimitBurst)
	setIf(&config.OTLPEndpoint, c.OTLPEndpoint)
	setIf(&config.OTLPInsecure, c.OTLPInsecure)
	if c.JWTTTL != nil {
		config.JWTTTL = c.JWTTTL.Duration
	}
	if c.S3PresignTTL != nil {
		config.S3PresignTTL = c.S3PresignTTL.Duration
	}

	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
