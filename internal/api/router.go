package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
	"github.com/glassflow/shopify-shops-etl/internal/scheduler"
)

type StateLoader interface {
	Load(ctx context.Context) (*state.SyncState, error)
}

type StatusProvider interface {
	Status() scheduler.Status
}

type handler struct {
	log      *slog.Logger
	state    StateLoader
	registry *registry.Registry
	status   StatusProvider
}

func NewRouter(log *slog.Logger, st StateLoader, reg *registry.Registry, status StatusProvider) http.Handler {
	h := handler{
		log:      log,
		state:    st,
		registry: reg,
		status:   status,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/state", h.syncState).Methods(http.MethodGet)
	r.HandleFunc("/streams", h.streams).Methods(http.MethodGet)
	r.HandleFunc("/status", h.runStatus).Methods(http.MethodGet)

	return r
}

func (h handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handler) syncState(w http.ResponseWriter, r *http.Request) {
	st, err := h.state.Load(r.Context())
	if err != nil {
		h.log.Error("failed to load state", slog.Any("error", err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load state"})
		return
	}

	h.writeJSON(w, http.StatusOK, st)
}

type streamView struct {
	ID                string         `json:"tap_stream_id"`
	KeyProperties     []string       `json:"key_properties"`
	ReplicationMethod string         `json:"replication_method"`
	ReplicationKey    string         `json:"replication_key,omitempty"`
	Schema            map[string]any `json:"schema"`
}

func (h handler) streams(w http.ResponseWriter, _ *http.Request) {
	ids := h.registry.IDs()
	views := make([]streamView, 0, len(ids))

	for _, id := range ids {
		def, err := h.registry.Lookup(id)
		if err != nil {
			continue
		}
		views = append(views, streamView{
			ID:                def.ID,
			KeyProperties:     def.KeyProperties,
			ReplicationMethod: string(def.ReplicationMethod),
			ReplicationKey:    def.ReplicationKey,
			Schema:            schema.JSONSchema(def.Mapping),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"streams": views})
}

func (h handler) runStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.status.Status())
}

func (h handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", slog.Any("error", err))
	}
}
