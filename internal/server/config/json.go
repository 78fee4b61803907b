package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mediadrop/internal/flagx"
	"github.com/dmitrijs2005/mediadrop/internal/timex"
)

// jsonConfig is the on-disk shape. Absent keys leave the current value alone.
type jsonConfig struct {
	HTTPAddr        *string         `json:"http_addr"`
	GRPCAddr        *string         `json:"grpc_addr"`
	DatabaseDSN     *string         `json:"database_dsn"`
	S3AccessKey     *string         `json:"s3_access_key"`
	S3SecretKey     *string         `json:"s3_secret_key"`
	S3Bucket        *string         `json:"s3_bucket"`
	S3Region        *string         `json:"s3_region"`
	S3BaseEndpoint  *string         `json:"s3_base_endpoint"`
	PresignTTL      *timex.Duration `json:"presign_ttl"`
	MaxUploadBytes  *int64          `json:"max_upload_bytes"`
	KafkaBrokers    []string        `json:"kafka_brokers"`
	KafkaTopic      *string         `json:"kafka_topic"`
	CORSOrigins     []string        `json:"cors_origins"`
	LogLevel        *string         `json:"log_level"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout"`
}

// parseJSON loads the file named by -c/-config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	for dst, v := range map[*string]*string{
		&cfg.HTTPAddr:       jc.HTTPAddr,
		&cfg.GRPCAddr:       jc.GRPCAddr,
		&cfg.DatabaseDSN:    jc.DatabaseDSN,
		&cfg.S3AccessKey:    jc.S3AccessKey,
		&cfg.S3SecretKey:    jc.S3SecretKey,
		&cfg.S3Bucket:       jc.S3Bucket,
		&cfg.S3Region:       jc.S3Region,
		&cfg.S3BaseEndpoint: jc.S3BaseEndpoint,
		&cfg.KafkaTopic:     jc.KafkaTopic,
		&cfg.LogLevel:       jc.LogLevel,
	} {
		if v != nil {
			*dst = *v
		}
	}
	if jc.PresignTTL != nil {
		cfg.PresignTTL = jc.PresignTTL.Duration
	}
	if jc.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = jc.ShutdownTimeout.Duration
	}
	if jc.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *jc.MaxUploadBytes
	}
	if jc.KafkaBrokers != nil {
		cfg.KafkaBrokers = jc.KafkaBrokers
	}
	if jc.CORSOrigins != nil {
		cfg.CORSOrigins = jc.CORSOrigins
	}
	return nil
}
