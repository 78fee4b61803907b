package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/flagx"
	"github.com/dmitrijs2005/mediadrop/internal/timex"
)

// jsonConfig is the on-disk shape. Pointer fields distinguish "absent" from
// the zero value so a partial file only overrides what it names.
type jsonConfig struct {
	ServerURL       *string         `json:"server_url"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	TransferTimeout *timex.Duration `json:"transfer_timeout"`
	FallbackTimeout *timex.Duration `json:"fallback_timeout"`
	ThumbnailWait   *timex.Duration `json:"thumbnail_wait"`
	CompressTimeout *timex.Duration `json:"compress_timeout"`
	Compress        *bool           `json:"compress"`
	Quality         *float64        `json:"quality"`
	VideoCodec      *string         `json:"video_codec"`
	Container       *string         `json:"container"`
	KeepAudio       *bool           `json:"keep_audio"`
	HistoryDB       *string         `json:"history_db"`
	LogLevel        *string         `json:"log_level"`
	LogFile         *string         `json:"log_file"`
}

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

	setString(&cfg.ServerURL, jc.ServerURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.TransferTimeout, jc.TransferTimeout)
	setDuration(&cfg.FallbackTimeout, jc.FallbackTimeout)
	setDuration(&cfg.ThumbnailWait, jc.ThumbnailWait)
	setDuration(&cfg.CompressTimeout, jc.CompressTimeout)
	if jc.Compress != nil {
		cfg.Compress = *jc.Compress
	}
	if jc.Quality != nil {
		cfg.Quality = *jc.Quality
	}
	setString(&cfg.VideoCodec, jc.VideoCodec)
	setString(&cfg.Container, jc.Container)
	if jc.KeepAudio != nil {
		cfg.KeepAudio = *jc.KeepAudio
	}
	setString(&cfg.HistoryDB, jc.HistoryDB)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
