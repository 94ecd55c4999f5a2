package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shelfwatch/app/adapter"
	"shelfwatch/app/cfg"
	"shelfwatch/app/run"
)

type Handler struct {
	statsStore StatsStore
	pinger     Pinger
	registry   *adapter.Registry
	runner     *run.Runner
	startedAt  time.Time
}

func NewHandler(statsStore StatsStore, pinger Pinger, registry *adapter.Registry, runner *run.Runner) *Handler {
	return &Handler{
		statsStore: statsStore,
		pinger:     pinger,
		registry:   registry,
		runner:     runner,
		startedAt:  time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.Get().Version,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"adapters":  h.registry.Count(),
	}

	if err := h.pinger.Ping(); err != nil {
		slog.Error("Health check failed", "error", err)
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["status"] = "ok"
	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	sources, err := h.statsStore.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	snapshotTotal := 0
	perItem := make(map[string]int, len(sources))
	for _, src := range sources {
		count, err := h.statsStore.SnapshotCount(src.ItemID)
		if err != nil {
			slog.Error("Database error", "operation", "snapshot_count", "item", src.ItemID, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		perItem[src.ItemID] = count
		snapshotTotal += count
	}

	logCount, err := h.statsStore.LogCount()
	if err != nil {
		slog.Error("Database error", "operation", "log_count", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	stats := gin.H{
		"sources":           len(sources),
		"snapshots":         snapshotTotal,
		"snapshots_by_item": perItem,
		"log_rows":          logCount,
	}

	if report := h.runner.LastReport(); report != nil {
		stats["last_run"] = gin.H{
			"finished_at": report.FinishedAt.Format(time.RFC3339),
			"processed":   report.Processed,
			"changed":     report.Changed,
			"skipped":     report.Skipped,
			"partial":     report.Partial,
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetReport(c *gin.Context) {
	report := h.runner.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has completed yet"})
		return
	}

	resp := reportResponse{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt.Format(time.RFC3339),
		FinishedAt: report.FinishedAt.Format(time.RFC3339),
		Duration:   report.Duration().String(),
		Total:      report.Total,
		Processed:  report.Processed,
		Changed:    report.Changed,
		Skipped:    report.Skipped,
		Degraded:   report.Degraded,
		Partial:    report.Partial,

		SnapshotsWritten:        report.SnapshotsWritten,
		NotificationsSent:       report.NotificationsSent,
		NotificationsSuppressed: report.NotificationsSuppressed,
		NotificationsFailed:     report.NotificationsFailed,
	}
	for _, res := range report.Results {
		item := itemResultResponse{
			ItemID:   res.ItemID,
			Kind:     string(res.Kind),
			Written:  res.Written,
			Skipped:  res.Skipped,
			Degraded: res.Degraded,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		resp.Items = append(resp.Items, item)
	}

	c.JSON(http.StatusOK, resp)
}
