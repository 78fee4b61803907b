package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
)

func sourceVideo(t *testing.T) *blob.Blob {
	t.Helper()
	p := filepath.Join(t.TempDir(), "holiday.mov")
	require.NoError(t, os.WriteFile(p, []byte("not really a video"), 0o600))
	b, err := blob.FromFile(p)
	require.NoError(t, err)
	return b
}

func newTestPreprocessor(t *testing.T, info *VideoInfo, run func(ctx context.Context, job encodeJob) error) (*Preprocessor, string) {
	t.Helper()
	tmp := t.TempDir()
	p := NewPreprocessor(Config{TempDir: tmp, ThumbnailWait: time.Second, CompressTimeout: time.Second}, nil)
	p.inspect = func(ctx context.Context, path string) (*VideoInfo, error) {
		if info == nil {
			return nil, ErrNoVideoStream
		}
		return info, nil
	}
	p.run = run
	return p, tmp
}

func writeFrame(path string, w, h int) error {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	return imaging.Save(img, path)
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files must be released")
}

func TestExtractThumbnail_Success(t *testing.T) {
	src := sourceVideo(t)
	var got encodeJob
	p, tmp := newTestPreprocessor(t, &VideoInfo{Duration: 10 * time.Second, Width: 1920, Height: 1080},
		func(_ context.Context, job encodeJob) error {
			got = job
			return writeFrame(job.Output, 1920, 1080)
		})

	thumb, err := p.ExtractThumbnail(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "00:00:01.000", got.SeekTime, "seek to 10% of the duration")
	assert.Equal(t, 1, got.Frames)
	assert.Empty(t, got.Filter, "the frame is fitted once, after decoding")
	assert.Equal(t, src.Path(), got.Input)

	assert.Equal(t, "image/jpeg", thumb.ContentType())
	assert.Equal(t, "holiday_thumb.jpg", thumb.Name())

	rc, err := thumb.Open()
	require.NoError(t, err)
	defer rc.Close()
	img, format, err := image.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, img.Bounds().Dx(), ThumbnailMaxWidth)
	assert.LessOrEqual(t, img.Bounds().Dy(), ThumbnailMaxHeight)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 225, img.Bounds().Dy())

	assertDirEmpty(t, tmp)
}

func TestExtractThumbnail_SmallFrameKeepsSize(t *testing.T) {
	p, _ := newTestPreprocessor(t, &VideoInfo{Duration: 4 * time.Second, Width: 320, Height: 240},
		func(_ context.Context, job encodeJob) error {
			return writeFrame(job.Output, 320, 240)
		})

	thumb, err := p.ExtractThumbnail(context.Background(), sourceVideo(t))
	require.NoError(t, err)

	rc, err := thumb.Open()
	require.NoError(t, err)
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, [2]int{320, 240}, [2]int{cfg.Width, cfg.Height}, "never upscaled")
}

func TestExtractThumbnail_Failures(t *testing.T) {
	boom := errors.New("ffmpeg exited 1")

	tests := []struct {
		name    string
		info    *VideoInfo
		run     func(ctx context.Context, job encodeJob) error
		wantErr error
	}{
		{
			name:    "undecodable",
			info:    nil,
			wantErr: ErrNoVideoStream,
		},
		{
			name:    "encoder fails",
			info:    &VideoInfo{Duration: time.Second, Width: 640, Height: 480},
			run:     func(context.Context, encodeJob) error { return boom },
			wantErr: boom,
		},
		{
			name:    "no frame written",
			info:    &VideoInfo{Duration: time.Second, Width: 640, Height: 480},
			run:     func(context.Context, encodeJob) error { return nil },
			wantErr: ErrNoFrame,
		},
		{
			name: "bounded wait",
			info: &VideoInfo{Duration: time.Second, Width: 640, Height: 480},
			run: func(ctx context.Context, _ encodeJob) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, tmp := newTestPreprocessor(t, tt.info, tt.run)
			p.cfg.ThumbnailWait = 50 * time.Millisecond

			_, err := p.ExtractThumbnail(context.Background(), sourceVideo(t))

			var ee *ExtractionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, "holiday.mov", ee.File)
			assert.ErrorIs(t, err, tt.wantErr)
			assertDirEmpty(t, tmp)
		})
	}
}

func TestExtractThumbnail_InMemorySource(t *testing.T) {
	p, _ := newTestPreprocessor(t, nil, nil)
	_, err := p.ExtractThumbnail(context.Background(), blob.FromBytes("x.mp4", "video/mp4", []byte("x")))
	assert.ErrorIs(t, err, ErrNoSourcePath)
}

func TestCompress_Success(t *testing.T) {
	src := sourceVideo(t)
	var got encodeJob
	p, tmp := newTestPreprocessor(t, &VideoInfo{Duration: 10 * time.Second, Width: 1920, Height: 1080},
		func(_ context.Context, job encodeJob) error {
			got = job
			return os.WriteFile(job.Output, []byte("encoded"), 0o600)
		})

	out, err := p.Compress(context.Background(), src, 0.5)
	require.NoError(t, err)

	assert.Equal(t, "scale=1356:762", got.Filter)
	assert.Equal(t, "500k", got.BitRate)
	assert.Equal(t, 30, got.FrameRate)
	assert.Equal(t, "00:00:10.000", got.Duration, "stop at the source duration")
	assert.Equal(t, DefaultVideoCodec, got.Codec)
	assert.Equal(t, DefaultContainer, got.Format)

	assert.Equal(t, "holiday_compressed.mp4", out.Name())
	assert.Equal(t, "video/mp4", out.ContentType())
	assert.EqualValues(t, len("encoded"), out.Size())

	_, err = os.Stat(src.Path())
	require.NoError(t, err, "source must be left in place")

	require.NoError(t, out.Release())
	assertDirEmpty(t, tmp)
}

func TestCompress_Failures(t *testing.T) {
	info := &VideoInfo{Duration: time.Second, Width: 640, Height: 480}
	boom := errors.New("cannot start")

	tests := []struct {
		name    string
		info    *VideoInfo
		quality float64
		run     func(ctx context.Context, job encodeJob) error
		wantErr error
	}{
		{name: "zero quality", info: info, quality: 0, wantErr: ErrBadQuality},
		{name: "quality above one", info: info, quality: 1.5, wantErr: ErrBadQuality},
		{name: "metadata unavailable", info: nil, quality: 0.8, wantErr: ErrNoVideoStream},
		{
			name: "encoder cannot start", info: info, quality: 0.8,
			run:     func(context.Context, encodeJob) error { return boom },
			wantErr: boom,
		},
		{
			name: "zero output", info: info, quality: 0.8,
			run: func(_ context.Context, job encodeJob) error {
				return os.WriteFile(job.Output, nil, 0o600)
			},
			wantErr: ErrEmptyOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, tmp := newTestPreprocessor(t, tt.info, tt.run)

			out, err := p.Compress(context.Background(), sourceVideo(t), tt.quality)
			assert.Nil(t, out)

			var ce *CompressionError
			require.ErrorAs(t, err, &ce)
			assert.ErrorIs(t, err, tt.wantErr)
			assertDirEmpty(t, tmp)
		})
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1920, 1080, 400, 225},
		{1080, 1920, 169, 300},
		{800, 600, 400, 300},
		{320, 240, 320, 240},
		{4000, 100, 400, 10},
		{0, 0, 400, 300},
	}
	for _, tt := range tests {
		w, h := FitWithin(tt.w, tt.h, 400, 300)
		assert.Equal(t, [2]int{tt.wantW, tt.wantH}, [2]int{w, h}, "%dx%d", tt.w, tt.h)
	}
}

func TestScaledDimensionsAndBitrate(t *testing.T) {
	w, h := ScaledDimensions(1280, 720, 1)
	assert.Equal(t, [2]int{1280, 720}, [2]int{w, h})

	w, h = ScaledDimensions(1280, 720, 0.25)
	assert.Equal(t, [2]int{640, 360}, [2]int{w, h})

	w, h = ScaledDimensions(3, 3, 0.01)
	assert.Equal(t, [2]int{2, 2}, [2]int{w, h})

	assert.Equal(t, 800_000, TargetBitrate(0.8))
	assert.Equal(t, 1_000_000, TargetBitrate(1))
}

func TestFFmpegTime(t *testing.T) {
	assert.Equal(t, "00:00:00.000", ffmpegTime(-time.Second))
	assert.Equal(t, "00:01:02.500", ffmpegTime(62500*time.Millisecond))
	assert.Equal(t, "01:00:00.000", ffmpegTime(time.Hour))
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo(blob.FromBytes("clip.bin", "video/webm", nil)))
	assert.True(t, IsVideo(blob.FromBytes("clip.MP4", "", nil)))
	assert.False(t, IsVideo(blob.FromBytes("photo.png", "image/png", nil)))

	p := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o600))
	b, err := blob.FromFile(p)
	require.NoError(t, err)
	assert.False(t, IsVideo(b))
}
