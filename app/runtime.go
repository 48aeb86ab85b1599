package app

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/searchktools/fast-static/config"
)

// tuneRuntime applies the configured GC settings.
func tuneRuntime(cfg *config.Config, logger *slog.Logger) {
	if cfg.GCPercent != 0 {
		previous := debug.SetGCPercent(cfg.GCPercent)
		logger.Info("gc percent set", "gogc", cfg.GCPercent, "previous", previous)
	}

	limit, err := cfg.MemoryLimitBytes()
	if err == nil && limit > 0 {
		debug.SetMemoryLimit(int64(limit))
		logger.Info("memory limit set", "limit", humanize.IBytes(uint64(limit)))
	}
}

// GCStats holds garbage collection statistics
type GCStats struct {
	NumGC      uint32
	PauseTotal time.Duration
	LastPause  time.Duration
	HeapAlloc  uint64
	Sys        uint64
}

// ReadGCStats returns current GC statistics
func ReadGCStats() GCStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := GCStats{
		NumGC:      ms.NumGC,
		PauseTotal: time.Duration(ms.PauseTotalNs),
		HeapAlloc:  ms.HeapAlloc,
		Sys:        ms.Sys,
	}
	if ms.NumGC > 0 {
		stats.LastPause = time.Duration(ms.PauseNs[(ms.NumGC+255)%256])
	}
	return stats
}

func logGCStats(logger *slog.Logger) {
	gc := ReadGCStats()
	logger.Info("runtime",
		"gc_cycles", gc.NumGC,
		"gc_pause_total", gc.PauseTotal,
		"heap", humanize.IBytes(gc.HeapAlloc),
		"sys", humanize.IBytes(gc.Sys),
	)
}
