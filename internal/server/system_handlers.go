package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers reports host resource usage.
type SystemHandlers struct {
	log zerolog.Logger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{log: log}
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	Goroutines    int     `json:"goroutines"`
	Timestamp     string  `json:"timestamp"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		CPUPercent: h.cpuPercent(),
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now().Format(time.RFC3339),
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		response.MemoryPercent = memStat.UsedPercent
		response.MemoryUsedMB = float64(memStat.Used) / 1024 / 1024
		response.MemoryTotalMB = float64(memStat.Total) / 1024 / 1024
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// MemoryUsedPercent returns host memory usage, false when unavailable.
func (h *SystemHandlers) MemoryUsedPercent() (float64, bool) {
	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, false
	}
	return memStat.UsedPercent, true
}

// cpuPercent samples CPU usage over 100ms, averaged across cores.
func (h *SystemHandlers) cpuPercent() float64 {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		}
		return 0
	}
	return cpuPercent[0]
}
