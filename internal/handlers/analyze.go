package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/OriflamCodeGamming/MoodCrowd/internal/analysis"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/monitoring"

	"github.com/gin-gonic/gin"
)

var (
	analyzerOnce  sync.Once
	batchAnalyzer *analysis.Analyzer
)

func getAnalyzer() *analysis.Analyzer {
	analyzerOnce.Do(func() {
		if batchAnalyzer != nil {
			return
		}
		batchAnalyzer = analysis.NewAnalyzer(
			analysis.NewFFmpegDecoder(),
			resolveScratchBasePath(),
			resolveMaxParallelAnalyses(),
		)
	})
	return batchAnalyzer
}

// SetAnalyzer overrides the batch analyzer. Used by tests.
func SetAnalyzer(a *analysis.Analyzer) {
	batchAnalyzer = a
}

// AnalyzeBatch accepts a multipart batch of audio files and returns one
// analysis outcome per accepted file, in submission order. Files without a
// recognized audio extension are skipped; a failure in one file never
// aborts the rest of the batch.
func AnalyzeBatch(c *gin.Context) {
	startedAt := time.Now()

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart form is required"})
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one file is required"})
		return
	}

	maxUploadBytes := resolveMaxUploadSizeBytes()
	uploads := make([]analysis.Upload, 0, len(fileHeaders))
	skipped := 0
	for _, header := range fileHeaders {
		header := header
		if !analysis.IsAudioFilename(header.Filename) {
			skipped++
			continue
		}
		uploads = append(uploads, analysis.Upload{
			Filename: header.Filename,
			Open: func() (io.ReadCloser, error) {
				if header.Size > maxUploadBytes {
					return nil, fmt.Errorf("file exceeds %d bytes", maxUploadBytes)
				}
				return header.Open()
			},
		})
	}
	if skipped > 0 {
		log.Printf("analyze: skipped %d files without an audio extension", skipped)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), resolveAnalysisDeadline())
	defer cancel()

	outcomes, err := getAnalyzer().Run(ctx, uploads)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Analysis timed out"})
			return
		}
		log.Printf("Error running batch analysis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error analyzing files"})
		return
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			failed++
		}
	}
	monitoring.RecordBatch(len(uploads), failed, time.Since(startedAt))

	c.JSON(http.StatusOK, outcomes)
}
