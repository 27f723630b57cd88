package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
)

var errNoOutput = errors.New("encoder produced no output")

type Encoder struct {
	cfg config.EncoderConfig
}

func NewEncoder(cfg config.EncoderConfig) *Encoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &Encoder{cfg: cfg}
}

// Args returns the ffmpeg arguments that render manifest and audio into out.
func (e *Encoder) Args(manifestPath, audioPath, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-i", audioPath,
		"-c:v", e.cfg.VideoCodec,
		"-tune", "stillimage",
		"-pix_fmt", e.cfg.PixelFormat,
		"-c:a", e.cfg.AudioCodec,
		"-b:a", e.cfg.AudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		out,
	}
}

// Encode runs ffmpeg into a partial file next to outputPath and renames it
// into place once ffmpeg exits cleanly with a non-empty file.
func (e *Encoder) Encode(ctx context.Context, manifestPath, audioPath, outputPath string) (err error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	tmp := partialOutputPath(outputPath)
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	cmd := exec.CommandContext(ctx, e.cfg.FFmpegPath, e.Args(manifestPath, audioPath, tmp)...)
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("%w: %v", ctxErr, runErr)
		}
		return &EncodeError{ExitCode: exitCode, Stderr: tail(stderr.Bytes(), stderrTailBytes), Err: runErr}
	}

	info, statErr := os.Stat(tmp)
	if statErr != nil || info.Size() == 0 {
		return &EncodeError{Stderr: tail(stderr.Bytes(), stderrTailBytes), Err: errNoOutput}
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return &EncodeError{Err: fmt.Errorf("failed to publish %s: %w", outputPath, err)}
	}
	return nil
}

// partialOutputPath keeps the container extension so ffmpeg can infer the
// muxer: videos/abc.mp4 -> videos/abc.part.mp4.
func partialOutputPath(outputPath string) string {
	if base, ok := strings.CutSuffix(outputPath, ".mp4"); ok {
		return base + partSuffix + ".mp4"
	}
	return outputPath + partSuffix
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
