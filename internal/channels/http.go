package channels

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pulse/internal/apperr"
	"pulse/internal/auth"
	"pulse/internal/models"
	"pulse/internal/telemetry"

	"github.com/gorilla/mux"
)

type HTTP struct {
	repo    *Repo
	records *telemetry.Repo
}

func NewHTTP(repo *Repo, records *telemetry.Repo) *HTTP {
	return &HTTP{repo: repo, records: records}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1/channels").Subrouter()

	api.HandleFunc("", h.list).Methods(http.MethodGet)
	api.HandleFunc("", h.create).Methods(http.MethodPost)
	api.HandleFunc("/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/{id}", h.update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/{id}", h.delete).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/generate-read-key", h.generateReadKey).Methods(http.MethodPost)
	api.HandleFunc("/{id}/feeds", h.feeds).Methods(http.MethodGet)
}

// channelID — id из пути; клиенты иногда присылают id в фигурных скобках,
// чистим как и остальной мусор по краям.
func channelID(r *http.Request) string {
	return strings.TrimSpace(strings.Trim(mux.Vars(r)["id"], "{}"))
}

func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, apperr.ErrUnauthorized.Error(), http.StatusUnauthorized)
	}
	return id, ok
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	chs, err := h.repo.ListByOwner(ownerID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(chs)
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		Name        string       `json:"name"`
		Description string       `json:"description"`
		Fields      []FieldInput `json:"fields"`
		IsPublic    bool         `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ch, err := h.repo.Create(ownerID, CreateInput{
		Name:        in.Name,
		Description: in.Description,
		Fields:      in.Fields,
		IsPublic:    in.IsPublic,
	})
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(ch)
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	ch, err := h.repo.Get(ownerID, channelID(r))
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(ch)
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ch, err := h.repo.Update(ownerID, channelID(r), in)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(ch)
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(ownerID, channelID(r)); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "channel deleted"})
}

func (h *HTTP) generateReadKey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	key, err := h.repo.GenerateReadKey(ownerID, channelID(r))
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"readApiKey": key})
}

// feeds — экспорт данных канала владельцем: csv либо json. Оба формата —
// прямая проекция telemetry.Query без дополнительной фильтрации.
func (h *HTTP) feeds(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	ch, err := h.repo.Get(ownerID, channelID(r))
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	opts, err := telemetry.OptsFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	feeds, err := h.records.Query(ch.UUID, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="channel_%s_data.csv"`, ch.UUID))
		writeCSV(w, feeds)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"channel": ch, "feeds": feeds})
}

// writeCSV — фиксированный порядок колонок: Date,Field1..Field8.
func writeCSV(w http.ResponseWriter, feeds []models.Record) {
	var b strings.Builder
	b.WriteString("Date,Field1,Field2,Field3,Field4,Field5,Field6,Field7,Field8\n")
	for i := range feeds {
		rec := &feeds[i]
		b.WriteString(rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		for n := 1; n <= models.MaxFields; n++ {
			b.WriteByte(',')
			if v := rec.FieldBySlot(n); v != nil {
				b.WriteString(trimFloat(*v))
			}
		}
		b.WriteByte('\n')
	}
	_, _ = w.Write([]byte(b.String()))
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
}
