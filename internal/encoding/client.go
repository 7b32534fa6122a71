package encoding

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"vodworks/internal/config"
	"vodworks/internal/logging"
	"vodworks/internal/services"
)

var commandContext = exec.CommandContext

// Result carries the outcome of a successful transcode.
type Result struct {
	ManifestPath string
}

// Client defines encoder behaviour. Implementations must not panic and must
// normalize every process-level failure (spawn, non-zero exit, timeout) into
// the returned error.
type Client interface {
	Transcode(ctx context.Context, sourcePath, outputDir string) (Result, error)
}

// FFmpeg invokes the external ffmpeg binary with a fixed HLS argument
// template: single rendition, re-encoded video and audio, bounded-duration
// segment series plus an index manifest under the output directory.
type FFmpeg struct {
	settings    config.Encoding
	sourceRetry time.Duration
	logger      *slog.Logger
}

// NewFFmpeg constructs the encoder adapter from configuration.
func NewFFmpeg(cfg *config.Config, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		settings:    cfg.Encoding,
		sourceRetry: time.Duration(cfg.Workflow.SourceRetryDelaySeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "encoder"),
	}
}

// Transcode runs one encode attempt. Success is accepted only when the
// manifest exists on disk after the process exits; an exit-code success with
// missing output is reported as a failure.
func (f *FFmpeg) Transcode(ctx context.Context, sourcePath, outputDir string) (Result, error) {
	if sourcePath == "" {
		return Result{}, services.Wrap(services.ErrValidation, "encoder", "transcode", "source path required", nil)
	}
	if outputDir == "" {
		return Result{}, services.Wrap(services.ErrValidation, "encoder", "transcode", "output directory required", nil)
	}

	if err := f.waitForSource(ctx, sourcePath); err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "encoder", "transcode", "create output directory", err)
	}

	manifestPath := filepath.Join(outputDir, "index.m3u8")
	args := f.arguments(sourcePath, outputDir, manifestPath)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(f.settings.TimeoutSeconds)*time.Second)
	defer cancel()

	f.logger.Info("launching ffmpeg",
		logging.String("input", sourcePath),
		logging.String("output_dir", outputDir),
	)

	cmd := commandContext(runCtx, f.settings.FFmpegBinary, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "encoder", "transcode", "stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "encoder", "transcode", "start ffmpeg", err)
	}

	tail := newTailBuffer(tailLines)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		tail.Append(scanner.Text())
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, "encoder", "transcode",
				fmt.Sprintf("ffmpeg exceeded %ds and was killed", f.settings.TimeoutSeconds), nil)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "encoder", "transcode", tail.Summary(), waitErr)
	}

	// An exit-code success without the manifest on disk is still a failure.
	if _, err := os.Stat(manifestPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "encoder", "transcode",
			fmt.Sprintf("manifest missing after successful exit: %s", manifestPath), nil)
	}

	return Result{ManifestPath: manifestPath}, nil
}

// waitForSource performs the single bounded presence retry: an upload that
// just committed may not be visible to this process yet, so one short wait
// is allowed before the attempt fails.
func (f *FFmpeg) waitForSource(ctx context.Context, sourcePath string) error {
	if _, err := os.Stat(sourcePath); err == nil {
		return nil
	}
	f.logger.Warn("source file missing, retrying once",
		logging.String("path", sourcePath),
		logging.Duration("delay", f.sourceRetry),
	)
	select {
	case <-ctx.Done():
		return services.Wrap(services.ErrTransient, "encoder", "transcode", "cancelled waiting for source", ctx.Err())
	case <-time.After(f.sourceRetry):
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return services.Wrap(services.ErrTransient, "encoder", "transcode",
			fmt.Sprintf("source file not found: %s", sourcePath), err)
	}
	return nil
}

func (f *FFmpeg) arguments(sourcePath, outputDir, manifestPath string) []string {
	return []string{
		"-y",
		"-i", sourcePath,
		"-c:v", f.settings.VideoCodec,
		"-preset", f.settings.Preset,
		"-profile:v", f.settings.Profile,
		"-level", f.settings.Level,
		"-c:a", f.settings.AudioCodec,
		"-b:a", f.settings.AudioBitrate,
		"-start_number", "0",
		"-hls_time", fmt.Sprintf("%d", f.settings.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outputDir, "segment_%03d.ts"),
		"-f", "hls",
		manifestPath,
	}
}

var _ Client = (*FFmpeg)(nil)
