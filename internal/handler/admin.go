package handler

import (
	"net/http"
	"runtime"
	"time"

	"kitvault-api/internal/repository"
	"kitvault-api/internal/service"
	"kitvault-api/pkg/apierror"
	"kitvault-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	catalog   *service.Catalog
	claimRepo repository.ClaimRepository
	dbType    string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(catalog *service.Catalog, claimRepo repository.ClaimRepository, dbType string) *AdminHandler {
	return &AdminHandler{
		catalog:   catalog,
		claimRepo: claimRepo,
		dbType:    dbType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["claim_db_type"] = h.dbType

	stats["catalog"] = map[string]interface{}{
		"kits": h.catalog.Count(),
	}

	// Claim store stats
	if h.claimRepo != nil {
		claimStats, err := h.claimRepo.Stats(ctx)
		if err == nil {
			claimStats["status"] = "connected"
			stats["claims"] = claimStats
		} else {
			stats["claims"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["claims"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// Reload handles POST /api/v1/admin/reload
// It atomically replaces the catalog with the definitions on disk.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalog.Reload(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to reload kits: "+err.Error()))
		return
	}
	response.OK(w, map[string]interface{}{"loaded": count})
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
