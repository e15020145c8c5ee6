package monitoring

import (
	"sync/atomic"
	"time"
)

var analysisBatchesTotal atomic.Uint64
var analysisFilesTotal atomic.Uint64
var analysisFilesFailed atomic.Uint64
var analysisDurationMicrosTotal atomic.Uint64

type AnalysisStats struct {
	BatchesTotal  uint64
	FilesTotal    uint64
	FilesFailed   uint64
	AvgDurationMS float64
}

// RecordBatch accumulates one batch-analysis request into the counters.
func RecordBatch(files int, failed int, duration time.Duration) {
	analysisBatchesTotal.Add(1)
	if files > 0 {
		analysisFilesTotal.Add(uint64(files))
	}
	if failed > 0 {
		analysisFilesFailed.Add(uint64(failed))
	}
	if duration > 0 {
		analysisDurationMicrosTotal.Add(uint64(duration / time.Microsecond))
	}
}

func getAnalysisStats() AnalysisStats {
	batches := analysisBatchesTotal.Load()
	totalDurationMicros := analysisDurationMicrosTotal.Load()
	avgDurationMS := 0.0
	if batches > 0 {
		avgDurationMS = float64(totalDurationMicros) / float64(batches) / 1000.0
	}

	return AnalysisStats{
		BatchesTotal:  batches,
		FilesTotal:    analysisFilesTotal.Load(),
		FilesFailed:   analysisFilesFailed.Load(),
		AvgDurationMS: avgDurationMS,
	}
}
