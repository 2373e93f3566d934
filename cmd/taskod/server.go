package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/vnykmshr/tasko/pkg/scheduling/registry"
)

type taskView struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Repeating      bool   `json:"repeating"`
	Active         bool   `json:"active"`
	PendingRemoval bool   `json:"pending_removal"`
	Interval       string `json:"interval,omitempty"`
	Cron           string `json:"cron,omitempty"`
	Runs           uint64 `json:"runs"`
	LastRun        string `json:"last_run,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

func viewOf(info registry.TaskInfo) taskView {
	v := taskView{
		ID:             info.ID,
		Name:           info.Name,
		Repeating:      info.Repeating,
		Active:         info.Active,
		PendingRemoval: info.PendingRemoval,
		Cron:           info.Cron,
		Runs:           info.Runs,
	}
	if info.Interval > 0 {
		v.Interval = info.Interval.String()
	}
	if !info.LastRun.IsZero() {
		v.LastRun = info.LastRun.Format(time.RFC3339Nano)
	}
	if info.LastError != nil {
		v.LastError = info.LastError.Error()
	}
	return v
}

// newHandler serves metrics plus a small control API over the registry:
//
//	GET    /metrics
//	GET    /tasks
//	GET    /tasks/{id}
//	POST   /tasks/{id}/pause
//	POST   /tasks/{id}/resume
//	DELETE /tasks/{id}
//	DELETE /tasks
//	POST   /debug?enabled=true|false
func newHandler(reg registry.Registry, gatherer prometheus.Gatherer, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		tasks := reg.List()
		views := make([]taskView, 0, len(tasks))
		for _, info := range tasks {
			views = append(views, viewOf(info))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"capacity": reg.Cap(),
			"occupied": reg.Len(),
			"tasks":    views,
		})
	})

	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		info, err := reg.Get(id)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, viewOf(info))
	})

	mux.HandleFunc("POST /tasks/{id}/pause", func(w http.ResponseWriter, r *http.Request) {
		if id, ok := pathID(w, r); ok {
			writeChanged(w, reg.Pause(id))
		}
	})

	mux.HandleFunc("POST /tasks/{id}/resume", func(w http.ResponseWriter, r *http.Request) {
		if id, ok := pathID(w, r); ok {
			writeChanged(w, reg.Resume(id))
		}
	})

	mux.HandleFunc("DELETE /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if id, ok := pathID(w, r); ok {
			writeChanged(w, reg.Remove(r.Context(), id))
		}
	})

	mux.HandleFunc("DELETE /tasks", func(w http.ResponseWriter, r *http.Request) {
		reg.ClearAll(r.Context())
		log.Info().Msg("all tasks cleared over http")
		writeJSON(w, http.StatusOK, map[string]int{"occupied": reg.Len()})
	})

	mux.HandleFunc("POST /debug", func(w http.ResponseWriter, r *http.Request) {
		enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled must be true or false"})
			return
		}
		reg.EnableDebug(enabled)
		writeJSON(w, http.StatusOK, map[string]bool{"debug": enabled})
	})

	return mux
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id must be an integer"})
		return registry.InvalidID, false
	}
	return id, true
}

func writeChanged(w http.ResponseWriter, changed bool) {
	status := http.StatusOK
	if !changed {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]bool{"changed": changed})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
