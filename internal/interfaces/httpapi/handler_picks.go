package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/pickboard/internal/usecase"
)

func (h *Handler) ListPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPicks")
	defer span.End()

	query := listPicksQuery{
		Sports: usecase.SplitSports(r.URL.Query().Get("sports")),
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
	}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	dashboard, err := h.dashboardService.Refresh(ctx, query.Sports, query.Date)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh picks failed", "sports", query.Sports, "date", query.Date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, dashboard)
}

func (h *Handler) ListTrackedPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTrackedPicks")
	defer span.End()

	var locked *bool
	if raw := strings.TrimSpace(r.URL.Query().Get("locked")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: locked must be true or false", usecase.ErrInvalidInput))
			return
		}
		locked = &value
	}

	picks := h.dashboardService.Tracked(locked)
	writeSuccess(ctx, w, http.StatusOK, trackedPicksDTO{Count: len(picks), Picks: picks})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSnapshot")
	defer span.End()

	snapshot, err := h.dashboardService.Snapshot(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, snapshotDTO{
		FetchedAt: snapshot.FetchedAt,
		Count:     len(snapshot.Picks),
		Picks:     snapshot.Picks,
	})
}

func (h *Handler) SetPickLock(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetPickLock")
	defer span.End()

	pickID := strings.TrimSpace(r.PathValue("pickID"))
	var req setLockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.dashboardService.SetLock(ctx, pickID, *req.Locked)
	if err != nil {
		h.logger.WarnContext(ctx, "set pick lock failed", "pick_id", pickID, "locked", *req.Locked, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, updated)
}
