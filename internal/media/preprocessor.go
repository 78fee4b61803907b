// Package media derives upload artifacts from local video files: a JPEG
// preview frame and an optional smaller re-encode. Decoding and encoding
// are delegated to the ffmpeg binaries through goffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
)

const (
	ThumbnailMaxWidth  = 400
	ThumbnailMaxHeight = 300
	ThumbnailQuality   = 80

	// thumbnailSeekRatio places the preview frame at 10% of the duration.
	thumbnailSeekRatio = 0.10

	CompressedFrameRate = 30

	DefaultThumbnailWait   = 30 * time.Second
	DefaultCompressTimeout = 30 * time.Minute
	DefaultVideoCodec      = "libx264"
	DefaultContainer       = "mp4"
)

type Config struct {
	ThumbnailWait   time.Duration
	CompressTimeout time.Duration
	VideoCodec      string
	Container       string
	// KeepAudio copies the audio track into compressed output.
	KeepAudio bool
	// TempDir is where intermediate files go; "" means os.TempDir().
	TempDir string
}

type Preprocessor struct {
	cfg Config
	log logging.Logger

	inspect func(ctx context.Context, path string) (*VideoInfo, error)
	run     func(ctx context.Context, job encodeJob) error
}

func NewPreprocessor(cfg Config, log logging.Logger) *Preprocessor {
	if cfg.ThumbnailWait <= 0 {
		cfg.ThumbnailWait = DefaultThumbnailWait
	}
	if cfg.CompressTimeout <= 0 {
		cfg.CompressTimeout = DefaultCompressTimeout
	}
	if cfg.VideoCodec == "" {
		cfg.VideoCodec = DefaultVideoCodec
	}
	if cfg.Container == "" {
		cfg.Container = DefaultContainer
	}
	if log == nil {
		log = logging.Nop
	}
	return &Preprocessor{cfg: cfg, log: log, inspect: readVideoInfo, run: runFFmpeg}
}

// Inspect reports duration and raster size of the video at path.
func (p *Preprocessor) Inspect(ctx context.Context, path string) (*VideoInfo, error) {
	return p.inspect(ctx, path)
}

// ExtractThumbnail grabs one full-size frame at 10% of the source
// duration, fits it into 400x300 keeping the aspect ratio and encodes it
// as JPEG.
func (p *Preprocessor) ExtractThumbnail(ctx context.Context, src *blob.Blob) (*blob.Blob, error) {
	fail := func(err error) (*blob.Blob, error) {
		return nil, &ExtractionError{File: src.Name(), Err: err}
	}
	if src.Path() == "" {
		return fail(ErrNoSourcePath)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ThumbnailWait)
	defer cancel()

	info, err := p.inspect(ctx, src.Path())
	if err != nil {
		return fail(err)
	}

	seek := time.Duration(float64(info.Duration) * thumbnailSeekRatio)

	dir, err := os.MkdirTemp(p.cfg.TempDir, "thumbnail_")
	if err != nil {
		return fail(fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	frame := filepath.Join(dir, "frame.png")
	err = p.run(ctx, encodeJob{
		Input:     src.Path(),
		Output:    frame,
		SeekTime:  ffmpegTime(seek),
		Frames:    1,
		Codec:     "png",
		Format:    "image2",
		SkipAudio: true,
	})
	if err != nil {
		return fail(fmt.Errorf("grab frame: %w", err))
	}

	img, err := imaging.Open(frame)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrNoFrame, err))
	}
	b := img.Bounds()
	if w, h := FitWithin(b.Dx(), b.Dy(), ThumbnailMaxWidth, ThumbnailMaxHeight); w != b.Dx() || h != b.Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(ThumbnailQuality)); err != nil {
		return fail(fmt.Errorf("encode jpeg: %w", err))
	}

	b = img.Bounds()
	p.log.Debug(ctx, "thumbnail extracted", "file", src.Name(), "seek", seek, "width", b.Dx(), "height", b.Dy(), "bytes", buf.Len())

	return blob.FromBytes(thumbnailName(src.Name()), "image/jpeg", buf.Bytes()), nil
}

// Compress re-encodes src with both dimensions scaled by sqrt(quality), at
// 30 fps and a target bitrate of quality*1e6 bit/s. The result is not
// guaranteed to be smaller than the source. The returned blob owns a
// temporary directory; callers must Release it.
func (p *Preprocessor) Compress(ctx context.Context, src *blob.Blob, quality float64) (*blob.Blob, error) {
	fail := func(err error) (*blob.Blob, error) {
		return nil, &CompressionError{File: src.Name(), Err: err}
	}
	if src.Path() == "" {
		return fail(ErrNoSourcePath)
	}
	if quality <= 0 || quality > 1 || math.IsNaN(quality) {
		return fail(ErrBadQuality)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.CompressTimeout)
	defer cancel()

	info, err := p.inspect(ctx, src.Path())
	if err != nil {
		return fail(err)
	}

	w, h := ScaledDimensions(info.Width, info.Height, quality)
	bitrate := TargetBitrate(quality)

	dir, err := os.MkdirTemp(p.cfg.TempDir, "compress_")
	if err != nil {
		return fail(fmt.Errorf("create temp dir: %w", err))
	}

	name := compressedName(src.Name(), p.cfg.Container)
	out := filepath.Join(dir, name)

	job := encodeJob{
		Input:     src.Path(),
		Output:    out,
		Filter:    fmt.Sprintf("scale=%d:%d", w, h),
		Codec:     p.cfg.VideoCodec,
		Format:    p.cfg.Container,
		BitRate:   fmt.Sprintf("%dk", bitrate/1000),
		FrameRate: CompressedFrameRate,
		SkipAudio: !p.cfg.KeepAudio,
	}
	if info.Duration > 0 {
		job.Duration = ffmpegTime(info.Duration)
	}

	started := time.Now()
	if err := p.run(ctx, job); err != nil {
		_ = os.RemoveAll(dir)
		return fail(fmt.Errorf("encode: %w", err))
	}

	st, err := os.Stat(out)
	if err != nil || st.Size() == 0 {
		_ = os.RemoveAll(dir)
		return fail(ErrEmptyOutput)
	}

	res, err := blob.FromTempFile(out, name, containerMIME(p.cfg.Container), dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return fail(err)
	}

	p.log.Info(ctx, "video compressed",
		"file", src.Name(),
		"quality", quality,
		"width", w, "height", h,
		"bitrate", bitrate,
		"original_size", src.Size(),
		"compressed_size", res.Size(),
		"took", time.Since(started))

	return res, nil
}

// FitWithin scales w x h down to fit a maxW x maxH box, preserving the
// aspect ratio. Sources already inside the box are returned unchanged.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := max(1, int(math.Round(float64(w)*ratio)))
	fh := max(1, int(math.Round(float64(h)*ratio)))
	return fw, fh
}

// ScaledDimensions applies sqrt(quality) to both sides and rounds down to
// even numbers, which yuv420p encoders require.
func ScaledDimensions(w, h int, quality float64) (int, int) {
	scale := math.Sqrt(quality)
	return even(float64(w) * scale), even(float64(h) * scale)
}

// TargetBitrate returns the requested bitrate in bit/s.
func TargetBitrate(quality float64) int {
	return int(math.Round(quality * 1_000_000))
}

func even(v float64) int {
	n := int(v)
	n -= n % 2
	if n < 2 {
		n = 2
	}
	return n
}

func thumbnailName(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "_thumb.jpg"
}

func compressedName(src, container string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "_compressed." + container
}

func containerMIME(container string) string {
	switch container {
	case "webm":
		return "video/webm"
	case "matroska", "mkv":
		return "video/x-matroska"
	case "mov":
		return "video/quicktime"
	default:
		return "video/mp4"
	}
}
