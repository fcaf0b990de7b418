package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter 挂载 WebSocket、管理与监控接口
func NewRouter(world *World, cfg Config) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws", NewWSHandler(world, cfg.Conn)).Methods(http.MethodGet)
	router.HandleFunc("/admin/config", HandleAdminConfig(world, cfg.Conn)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/metrics", HandleMetrics(world)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}
