// Package config loads runtime configuration for the mediadrop client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-s string    base URL of the metadata server
//	-z           compress videos before upload
//	-q float     compression quality in (0, 1]
//	-t duration  timeout of the progress-reporting upload attempt
//	-d string    path of the local upload history database
//	-l string    log level (debug, info, warn, error)
//	-o string    log file path
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "5m" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "30s",
//	  "transfer_timeout": "5m",
//	  "fallback_timeout": "5m",
//	  "thumbnail_wait": "30s",
//	  "compress_timeout": "30m",
//	  "compress": false,
//	  "quality": 0.8,
//	  "video_codec": "libx264",
//	  "container": "mp4",
//	  "keep_audio": true,
//	  "history_db": "mediadrop.db",
//	  "log_level": "info",
//	  "log_file": "mediadrop.log"
//	}
package config
