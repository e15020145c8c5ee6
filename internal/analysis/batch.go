package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result for one submitted file. Either the metadata fields
// and BPM are set, or Error is set; never both.
type Outcome struct {
	Filename string   `json:"filename"`
	Title    string   `json:"title,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	BPM      *float64 `json:"bpm,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Upload is one submitted file. Open must return a fresh reader over the
// file's bytes.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".m4a":  {},
	".mp4":  {},
	".aac":  {},
	".ogg":  {},
	".opus": {},
}

var supportedAudioMimeTypes = map[string]struct{}{
	"audio/mpeg":      {},
	"audio/mp3":       {},
	"audio/wav":       {},
	"audio/x-wav":     {},
	"audio/wave":      {},
	"audio/flac":      {},
	"audio/x-flac":    {},
	"audio/mp4":       {},
	"audio/x-m4a":     {},
	"audio/aac":       {},
	"audio/x-aac":     {},
	"audio/ogg":       {},
	"application/ogg": {},
	"audio/opus":      {},
	"audio/vorbis":    {},
}

// IsAudioFilename reports whether the filename carries an accepted audio
// extension.
func IsAudioFilename(filename string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func normalizeMimeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return normalized
}

func isSupportedAudioMimeType(raw string) bool {
	_, ok := supportedAudioMimeTypes[normalizeMimeType(raw)]
	return ok
}

// Analyzer runs metadata extraction and tempo estimation over a batch of
// uploads with per-file failure isolation.
type Analyzer struct {
	estimator   *TempoEstimator
	scratchDir  string
	parallelism int
}

func NewAnalyzer(dec Decoder, scratchDir string, parallelism int) *Analyzer {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Analyzer{
		estimator:   NewTempoEstimator(dec),
		scratchDir:  scratchDir,
		parallelism: parallelism,
	}
}

// Run analyzes every upload and returns one outcome per upload, in
// submission order. A failing file only fails its own entry; Run itself
// fails only when the context is done before all files finish.
func (a *Analyzer) Run(ctx context.Context, uploads []Upload) ([]Outcome, error) {
	outcomes := make([]Outcome, len(uploads))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.parallelism)

	for i, upload := range uploads {
		i, upload := i, upload
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.analyzeOne(groupCtx, upload)
			return groupCtx.Err()
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("batch analysis aborted: %w", err)
	}
	return outcomes, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, upload Upload) Outcome {
	outcome := Outcome{Filename: upload.Filename}

	source, err := upload.Open()
	if err != nil {
		outcome.Error = fmt.Sprintf("read upload: %v", err)
		return outcome
	}
	defer source.Close()

	tempFile, err := os.CreateTemp(a.scratchDir, "analyze-*"+strings.ToLower(filepath.Ext(upload.Filename)))
	if err != nil {
		outcome.Error = fmt.Sprintf("prepare scratch file: %v", err)
		return outcome
	}
	tempPath := tempFile.Name()
	// The scratch copy lives exactly as long as this file's analysis.
	defer func() {
		_ = os.Remove(tempPath)
	}()

	written, err := io.Copy(tempFile, source)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		outcome.Error = fmt.Sprintf("spool upload: %v", err)
		return outcome
	}
	if written == 0 {
		outcome.Error = "file is empty"
		return outcome
	}

	detected, err := mimetype.DetectFile(tempPath)
	if err != nil {
		outcome.Error = fmt.Sprintf("detect content type: %v", err)
		return outcome
	}
	if !isSupportedAudioMimeType(detected.String()) {
		outcome.Error = fmt.Sprintf("unsupported audio format (%s)", normalizeMimeType(detected.String()))
		return outcome
	}

	meta, err := ExtractMetadata(tempPath)
	if err != nil {
		outcome.Error = fmt.Sprintf("tag read failed: %v", err)
		return outcome
	}

	bpm, err := a.estimator.EstimateFile(ctx, tempPath)
	if err != nil {
		outcome.Error = fmt.Sprintf("tempo estimation failed: %v", err)
		return outcome
	}

	outcome.Title = meta.Title
	outcome.Artist = meta.Artist
	outcome.Genre = meta.Genre
	outcome.BPM = &bpm
	return outcome
}
