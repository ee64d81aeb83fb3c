package telemetry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pulse/internal/apperr"
	"pulse/internal/auth"
	"pulse/internal/models"

	"github.com/gorilla/mux"
)

type HTTP struct {
	svc     *Service
	gate    *auth.Gate
	records *Repo
}

func NewHTTP(svc *Service, gate *auth.Gate, records *Repo) *HTTP {
	return &HTTP{svc: svc, gate: gate, records: records}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1/data").Subrouter()

	// ингест: GET для простых девайсов (query-string), POST с JSON-телом
	api.HandleFunc("/update", h.ingestGET).Methods(http.MethodGet)
	api.HandleFunc("/update", h.ingestPOST).Methods(http.MethodPost)

	// чтение: сессия владельца либо read_api_key
	api.HandleFunc("/channels/{id}", h.channelFeed).Methods(http.MethodGet)
	api.HandleFunc("/channels/{id}/fields/{n}", h.fieldFeed).Methods(http.MethodGet)
}

// OptsFromQuery — results / start / end из query (start/end — RFC3339,
// границы включительно).
func OptsFromQuery(q url.Values) (QueryOpts, error) {
	var opts QueryOpts
	if raw := q.Get("results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("%w: results must be a positive integer", apperr.ErrValidation)
		}
		opts.Limit = n
	}
	for name, dst := range map[string]**time.Time{"start": &opts.Start, "end": &opts.End} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return opts, fmt.Errorf("%w: %s must be RFC3339", apperr.ErrValidation, name)
			}
			*dst = &t
		}
	}
	return opts, nil
}

func (h *HTTP) ingestGET(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	key := q.Get("api_key")
	if key == "" {
		http.Error(w, "api_key is required", http.StatusBadRequest)
		return
	}
	p, err := PayloadFromQuery(q)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	h.ingest(w, key, p)
}

func (h *HTTP) ingestPOST(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	var key string
	if raw, ok := body["api_key"]; ok {
		_ = json.Unmarshal(raw, &key)
	}
	if key == "" {
		http.Error(w, "api_key is required", http.StatusBadRequest)
		return
	}
	p, err := PayloadFromBody(body)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	h.ingest(w, key, p)
}

func (h *HTTP) ingest(w http.ResponseWriter, key string, p Payload) {
	rec, err := h.svc.Ingest(key, p)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"entry_id":   rec.EntryUUID,
		"created_at": rec.CreatedAt,
	})
}

func (h *HTTP) channelFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ch, ok := h.authorizeRead(w, r)
	if !ok {
		return
	}
	opts, err := OptsFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	feeds, err := h.records.Query(ch.UUID, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"channel": map[string]any{
			"id":          ch.UUID,
			"name":        ch.Name,
			"description": ch.Description,
			"fields":      ch.Fields,
		},
		"feeds": feeds,
	})
}

// fieldFeed — выборка одного слота: created_at + fieldN.
func (h *HTTP) fieldFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ch, ok := h.authorizeRead(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n < 1 || n > models.MaxFields {
		http.Error(w, "invalid field number", http.StatusBadRequest)
		return
	}
	opts, err := OptsFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	feeds, err := h.records.Query(ch.UUID, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	name := fmt.Sprintf("field%d", n)
	out := make([]map[string]any, 0, len(feeds))
	for i := range feeds {
		out = append(out, map[string]any{
			"created_at": feeds[i].CreatedAt,
			name:         feeds[i].FieldBySlot(n),
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"channel": map[string]any{"id": ch.UUID, "name": ch.Name, "field": n},
		"feeds":   out,
	})
}

// authorizeRead прогоняет запрос через гейт: сессия либо read_api_key.
func (h *HTTP) authorizeRead(w http.ResponseWriter, r *http.Request) (*models.Channel, bool) {
	id := strings.TrimSpace(strings.Trim(mux.Vars(r)["id"], "{}"))
	identity, hasSession := auth.IdentityFrom(r.Context())
	ch, err := h.gate.Read(identity, hasSession, id, r.URL.Query().Get("read_api_key"))
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return nil, false
	}
	return ch, true
}
