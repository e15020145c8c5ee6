package handlers

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxUploadSize    int64 = 100 * 1024 * 1024 // 100 MB
	defaultAnalysisDeadline       = 5 * time.Minute
)

func resolveMaxUploadSizeBytes() int64 {
	return resolvePositiveInt64Env("MOOD_MAX_UPLOAD_SIZE_BYTES", defaultMaxUploadSize)
}

func resolveScratchBasePath() string {
	value := strings.TrimSpace(os.Getenv("MOOD_SCRATCH_PATH"))
	if value == "" {
		return os.TempDir()
	}
	return value
}

// resolveMaxParallelAnalyses caps in-flight decodes within one batch; tempo
// estimation is CPU-bound so the default tracks the core count.
func resolveMaxParallelAnalyses() int {
	value := resolvePositiveInt64Env("MOOD_MAX_PARALLEL_ANALYSES", int64(runtime.NumCPU()))
	return int(value)
}

func resolveAnalysisDeadline() time.Duration {
	seconds := resolvePositiveInt64Env("MOOD_ANALYSIS_TIMEOUT_SECONDS", int64(defaultAnalysisDeadline/time.Second))
	return time.Duration(seconds) * time.Second
}

func resolvePositiveInt64Env(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}

	return value
}
