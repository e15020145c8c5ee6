package monitoring

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/OriflamCodeGamming/MoodCrowd/internal/database"
)

// Service holds runtime context for monitoring and reporting.
type Service struct {
	startedAt time.Time
}

type Snapshot struct {
	TimestampUTC         string  `json:"timestamp_utc"`
	UptimeSeconds        int64   `json:"uptime_seconds"`
	HTTPActiveRequests   int64   `json:"http_active_requests"`
	HTTPTotalRequests    uint64  `json:"http_total_requests"`
	DBOpenConnections    int     `json:"db_open_connections"`
	DBInUseConnections   int     `json:"db_in_use_connections"`
	DBWaitCount          int64   `json:"db_wait_count"`
	Goroutines           int     `json:"goroutines"`
	GoMemoryAllocBytes   uint64  `json:"go_memory_alloc_bytes"`
	GoMemorySysBytes     uint64  `json:"go_memory_sys_bytes"`
	GoHeapInUseBytes     uint64  `json:"go_heap_in_use_bytes"`
	GoGCCount            uint32  `json:"go_gc_count"`
	UsersTotal           int64   `json:"users_total"`
	PlaylistsTotal       int64   `json:"playlists_total"`
	TracksTotal          int64   `json:"tracks_total"`
	AnalysisBatchesTotal uint64  `json:"analysis_batches_total"`
	AnalysisFilesTotal   uint64  `json:"analysis_files_total"`
	AnalysisFilesFailed  uint64  `json:"analysis_files_failed"`
	AnalysisAvgBatchMS   float64 `json:"analysis_avg_batch_ms"`
	ScratchSizeBytes     int64   `json:"scratch_size_bytes"`
	ScratchFilesCount    int64   `json:"scratch_files_count"`
	ScratchFSTotalBytes  uint64  `json:"scratch_fs_total_bytes"`
	ScratchFSFreeBytes   uint64  `json:"scratch_fs_free_bytes"`
}

func NewService(startedAt time.Time) *Service {
	return &Service{startedAt: startedAt}
}

func (s *Service) StatusText() string {
	dbState := "ok"
	if err := database.DB.Ping(); err != nil {
		dbState = "error: " + err.Error()
	}

	uptime := time.Since(s.startedAt).Round(time.Second)
	activeHTTP, totalHTTP := getHTTPStats()
	analysis := getAnalysisStats()
	generic := database.DB.Stats()

	return strings.Join([]string{
		"MoodCrowd Server Status",
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("DB: %s", dbState),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
		fmt.Sprintf("DB open connections: %d", generic.OpenConnections),
		fmt.Sprintf("Analysis batches: %d", analysis.BatchesTotal),
		fmt.Sprintf("Analysis files: %d (%d failed)", analysis.FilesTotal, analysis.FilesFailed),
		fmt.Sprintf("Go goroutines: %d", runtime.NumGoroutine()),
	}, "\n")
}

func (s *Service) RuntimeText() string {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return strings.Join([]string{
		"MoodCrowd Runtime",
		fmt.Sprintf("Go version: %s", runtime.Version()),
		fmt.Sprintf("CPU cores: %d", runtime.NumCPU()),
		fmt.Sprintf("Goroutines: %d", runtime.NumGoroutine()),
		fmt.Sprintf("Memory alloc: %s", formatBytes(int64(memory.Alloc))),
		fmt.Sprintf("Memory sys: %s", formatBytes(int64(memory.Sys))),
		fmt.Sprintf("Heap in use: %s", formatBytes(int64(memory.HeapInuse))),
		fmt.Sprintf("GC cycles: %d", memory.NumGC),
	}, "\n")
}

func (s *Service) Snapshot() Snapshot {
	stats := database.DB.Stats()
	activeHTTP, totalHTTP := getHTTPStats()
	analysis := getAnalysisStats()
	scratchDir := getScratchDir()
	scratchTotal, scratchFree := fsUsage(scratchDir)

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	snap := Snapshot{
		TimestampUTC:         time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:        int64(time.Since(s.startedAt).Seconds()),
		HTTPActiveRequests:   activeHTTP,
		HTTPTotalRequests:    totalHTTP,
		DBOpenConnections:    stats.OpenConnections,
		DBInUseConnections:   stats.InUse,
		DBWaitCount:          int64(stats.WaitCount),
		Goroutines:           runtime.NumGoroutine(),
		GoMemoryAllocBytes:   memory.Alloc,
		GoMemorySysBytes:     memory.Sys,
		GoHeapInUseBytes:     memory.HeapInuse,
		GoGCCount:            memory.NumGC,
		AnalysisBatchesTotal: analysis.BatchesTotal,
		AnalysisFilesTotal:   analysis.FilesTotal,
		AnalysisFilesFailed:  analysis.FilesFailed,
		AnalysisAvgBatchMS:   analysis.AvgDurationMS,
		ScratchSizeBytes:     dirSize(scratchDir),
		ScratchFilesCount:    dirFileCount(scratchDir),
		ScratchFSTotalBytes:  scratchTotal,
		ScratchFSFreeBytes:   scratchFree,
	}

	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&snap.UsersTotal)
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM playlists`).Scan(&snap.PlaylistsTotal)
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&snap.TracksTotal)

	return snap
}

// getScratchDir mirrors the analysis handlers' temp path resolution. Leftover
// files here mean a per-file cleanup bug.
func getScratchDir() string {
	value := strings.TrimSpace(os.Getenv("MOOD_SCRATCH_PATH"))
	if value == "" {
		return os.TempDir()
	}
	return value
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func dirFileCount(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		total++
		return nil
	})
	return total
}

func formatBytes(value int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(value)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", value, units[unit])
	}
	return fmt.Sprintf("%.2f %s", size, units[unit])
}
