package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/xfrr/goffmpeg"
	gomedia "github.com/xfrr/goffmpeg/media"
	"github.com/xfrr/goffmpeg/transcoder"
)

// VideoInfo is what the preprocessor needs to know about a source video.
type VideoInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
	Format   string
}

// encodeJob is a single ffmpeg invocation. Empty fields are left to ffmpeg.
type encodeJob struct {
	Input     string
	Output    string
	SeekTime  string
	Frames    int
	Filter    string
	Codec     string
	Format    string
	BitRate   string
	FrameRate int
	Duration  string
	SkipAudio bool
}

// ffmpegTranscoder is the part of goffmpeg's Transcoder used here.
type ffmpegTranscoder interface {
	SetConfiguration(cfg goffmpeg.Configuration)
	InitializeEmptyTranscoder() error
	SetInputPath(path string) error
	SetOutputPath(path string) error
	MediaFile() *gomedia.File
	Run(progress bool) <-chan error
	Stop() error
	Process() *exec.Cmd
}

var (
	newTranscoder = func() ffmpegTranscoder { return new(transcoder.Transcoder) }

	// configureFFmpeg locates the ffmpeg and ffprobe binaries.
	configureFFmpeg = goffmpeg.Configure

	// runFFprobe returns ffprobe's JSON report for path. The process is
	// killed when ctx ends.
	runFFprobe = func(ctx context.Context, bin, path string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, bin,
			"-v", "error",
			"-print_format", "json",
			"-show_format", "-show_streams",
			"-i", path)
		cmd.WaitDelay = time.Second
		out, err := cmd.Output()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return out, err
	}
)

// stopGrace bounds how long a stopped ffmpeg process may take to exit
// before it is killed.
var stopGrace = 5 * time.Second

// readVideoInfo reads stream metadata through ffprobe.
func readVideoInfo(ctx context.Context, path string) (*VideoInfo, error) {
	cfg, err := configureFFmpeg(ctx)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	out, err := runFFprobe(ctx, cfg.FFprobeBinPath(), path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var md gomedia.Metadata
	if err := json.Unmarshal(out, &md); err != nil {
		return nil, fmt.Errorf("ffprobe: decode report: %w", err)
	}
	return videoInfo(md)
}

func videoInfo(md gomedia.Metadata) (*VideoInfo, error) {
	info := &VideoInfo{Format: md.Format.FormatName}
	if secs, err := strconv.ParseFloat(md.Format.Duration, 64); err == nil && secs > 0 {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, s := range md.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Width = s.Width
		info.Height = s.Height
		info.Codec = s.CodecName
		break
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, ErrNoVideoStream
	}
	return info, nil
}

// runFFmpeg executes job and stops the process when ctx ends first.
func runFFmpeg(ctx context.Context, job encodeJob) error {
	cfg, err := configureFFmpeg(ctx)
	if err != nil {
		return fmt.Errorf("initialize transcoder: %w", err)
	}

	trans := newTranscoder()
	trans.SetConfiguration(cfg)
	if err := trans.InitializeEmptyTranscoder(); err != nil {
		return fmt.Errorf("initialize transcoder: %w", err)
	}
	if err := trans.SetInputPath(job.Input); err != nil {
		return fmt.Errorf("initialize transcoder: %w", err)
	}
	if err := trans.SetOutputPath(job.Output); err != nil {
		return fmt.Errorf("initialize transcoder: %w", err)
	}

	applyJob(trans.MediaFile(), job)

	done := trans.Run(false)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	_ = trans.Stop()
	select {
	case <-done:
	case <-time.After(stopGrace):
		if p := trans.Process(); p != nil && p.Process != nil {
			_ = p.Process.Kill()
		}
		<-done
	}
	return ctx.Err()
}

func applyJob(mf *gomedia.File, job encodeJob) {
	if job.SeekTime != "" {
		mf.SetSeekTime(job.SeekTime)
	}
	if job.Frames > 0 {
		mf.SetVframes(job.Frames)
	}
	if job.Filter != "" {
		mf.SetVideoFilter(job.Filter)
	}
	if job.Codec != "" {
		mf.SetVideoCodec(job.Codec)
	}
	if job.Format != "" {
		mf.SetOutputFormat(job.Format)
	}
	if job.BitRate != "" {
		mf.SetVideoBitRate(job.BitRate)
	}
	if job.FrameRate > 0 {
		mf.SetFrameRate(job.FrameRate)
	}
	if job.Duration != "" {
		mf.SetDuration(job.Duration)
	}
	mf.SetSkipAudio(job.SkipAudio)
}

// ffmpegTime renders d the way ffmpeg's -ss and -t options expect.
func ffmpegTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
