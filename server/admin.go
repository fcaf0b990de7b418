package server

import (
	"encoding/json"
	"net/http"
)

type canvasPayload struct {
	Width      *int `json:"width,omitempty"`
	Height     *int `json:"height,omitempty"`
	MarkerSize *int `json:"markerSize,omitempty"`
	StartX     *int `json:"startX,omitempty"`
	StartY     *int `json:"startY,omitempty"`
}

// HandleAdminConfig 画布配置的读取与更新（热更新裁剪边界）
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段，所有参与者按新边界重新裁剪
func HandleAdminConfig(world *World, conn ConnConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur, err := world.Canvas(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{
				"canvas": canvasPayload{
					Width:      &cur.Width,
					Height:     &cur.Height,
					MarkerSize: &cur.MarkerSize,
					StartX:     &cur.StartX,
					StartY:     &cur.StartY,
				},
				"conn": map[string]any{
					"sendQueue":      conn.SendQueue,
					"movesPerSecond": conn.MovesPerSecond,
					"moveBurst":      conn.MoveBurst,
				},
			})
		case http.MethodPost:
			var body canvasPayload
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&body); err != nil {
				http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
				return
			}
			next := cur
			if body.Width != nil {
				next.Width = *body.Width
			}
			if body.Height != nil {
				next.Height = *body.Height
			}
			if body.MarkerSize != nil {
				next.MarkerSize = *body.MarkerSize
			}
			if body.StartX != nil {
				next.StartX = *body.StartX
			}
			if body.StartY != nil {
				next.StartY = *body.StartY
			}
			if err := next.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := world.SetCanvas(r.Context(), next); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			Log.Infof("config updated: canvas=%dx%d marker=%d start=(%d,%d)",
				next.Width, next.Height, next.MarkerSize, next.StartX, next.StartY)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func HandleMetrics(world *World) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participants, channels, err := world.Stats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"participants": participants,
			"channels":     channels,
			"metrics":      world.Metrics().Snapshot(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
