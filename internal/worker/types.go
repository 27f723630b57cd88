package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	partSuffix       = ".part"
	stderrTailBytes  = 2048
	defaultJPEGExt   = ".jpg"
	manifestFileName = "_manifest.txt"
)

type AssetFetcher interface {
	Fetch(ctx context.Context, url, dst string) (string, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

type ImageNormalizer interface {
	Normalize(index int, data []byte, dst string) (string, error)
}

type VideoEncoder interface {
	Encode(ctx context.Context, manifestPath, audioPath, outputPath string) error
}

// jobPaths derives every scratch file of a job from its id.
type jobPaths struct {
	tempDir string
	id      string
}

func (p jobPaths) audio() string {
	return filepath.Join(p.tempDir, p.id+"_audio")
}

func (p jobPaths) image(index int) string {
	return filepath.Join(p.tempDir, fmt.Sprintf("%s_image_%03d%s", p.id, index, defaultJPEGExt))
}

func (p jobPaths) manifest() string {
	return filepath.Join(p.tempDir, p.id+manifestFileName)
}

func (p jobPaths) glob() string {
	return filepath.Join(p.tempDir, p.id+"_*")
}

// writeFileAtomic writes through a sibling .part file and renames it onto
// dst, so dst only ever appears complete.
func writeFileAtomic(dst string, write func(w io.Writer) error) (err error) {
	tmp := dst + partSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = write(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
