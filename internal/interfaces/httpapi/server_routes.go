package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerPickRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/picks", handler.ListPicks)
	mux.HandleFunc("GET /v1/picks/tracked", handler.ListTrackedPicks)
	mux.HandleFunc("GET /v1/picks/snapshot", handler.GetSnapshot)
	mux.HandleFunc("PUT /v1/picks/{pickID}/lock", handler.SetPickLock)
}

func registerSourceRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/sources/health", handler.SourceHealth)
	mux.HandleFunc("GET /v1/sources/{sport}/last-source", handler.GetLastSource)
	mux.HandleFunc("DELETE /v1/sources/{sport}/cache", handler.ClearSourceCache)
}
