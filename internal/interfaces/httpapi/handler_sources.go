package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/usecase"
)

func (h *Handler) SourceHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SourceHealth")
	defer span.End()

	report, err := h.healthService.CheckAll(ctx, usecase.SplitSports(r.URL.Query().Get("sports")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if report.Healthy == 0 && report.Unhealthy > 0 {
		status = http.StatusServiceUnavailable
	}
	writeSuccess(ctx, w, status, report)
}

func (h *Handler) GetLastSource(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLastSource")
	defer span.End()

	last, err := h.dashboardService.LastSource(r.PathValue("sport"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lastSourceDTO{
		Sport:    last.Sport,
		Endpoint: last.Endpoint,
		Tier:     last.Tier,
	})
}

func (h *Handler) ClearSourceCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearSourceCache")
	defer span.End()

	sport := pick.NormalizeSport(r.PathValue("sport"))
	dateKey := strings.TrimSpace(r.URL.Query().Get("date"))
	if err := h.dashboardService.ClearCache(sport, dateKey); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "source cache cleared", "sport", sport, "date", dateKey)
	writeSuccess(ctx, w, http.StatusOK, cacheClearedDTO{Sport: sport, DateKey: dateKey, Cleared: true})
}
