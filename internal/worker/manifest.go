package worker

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ManifestEntry is one line pair of an ffmpeg concat script. A zero
// DisplayDuration means the entry carries no duration directive.
type ManifestEntry struct {
	ImagePath       string
	DisplayDuration float64
}

func (e ManifestEntry) Timed() bool {
	return e.DisplayDuration > 0
}

// BuildManifest splits total evenly across images, in order. The last image
// is repeated once without a duration since the concat demuxer drops the
// duration of its final entry.
func BuildManifest(images []string, total time.Duration) ([]ManifestEntry, error) {
	if len(images) == 0 {
		return nil, ErrEmptyInput
	}

	perImage := total.Seconds() / float64(len(images))
	entries := make([]ManifestEntry, 0, len(images)+1)
	for _, img := range images {
		entries = append(entries, ManifestEntry{ImagePath: img, DisplayDuration: perImage})
	}
	entries = append(entries, ManifestEntry{ImagePath: images[len(images)-1]})
	return entries, nil
}

// WriteManifest renders entries in concat demuxer syntax at path.
func WriteManifest(path string, entries []ManifestEntry) error {
	if len(entries) == 0 {
		return ErrEmptyInput
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		return renderManifest(w, entries)
	})
}

func renderManifest(w io.Writer, entries []ManifestEntry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ffconcat version 1.0")
	for _, e := range entries {
		abs, err := filepath.Abs(e.ImagePath)
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "file %s\n", quoteConcatPath(abs))
		if e.Timed() {
			fmt.Fprintf(bw, "duration %s\n", strconv.FormatFloat(e.DisplayDuration, 'f', -1, 64))
		}
	}
	return bw.Flush()
}

// quoteConcatPath wraps p in single quotes; embedded quotes close the string,
// add an escaped quote and reopen it.
func quoteConcatPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
