package auth

import (
	"encoding/json"
	"net/http"

	"pulse/internal/apperr"

	"github.com/gorilla/mux"
)

type HTTP struct {
	users    *Users
	sessions *Sessions
}

func NewHTTP(u *Users, s *Sessions) *HTTP { return &HTTP{users: u, sessions: s} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1/auth").Subrouter()

	api.HandleFunc("/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/update-profile", h.updateProfile).Methods(http.MethodPut)
	api.HandleFunc("/change-password", h.changePassword).Methods(http.MethodPut)
}

func (h *HTTP) register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	usr, err := h.users.Register(in.Name, in.Email, in.Password)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	if err := h.sessions.Issue(w, usr.UUID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(usr)
}

func (h *HTTP) login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	usr, err := h.users.Authenticate(in.Email, in.Password)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	if err := h.sessions.Issue(w, usr.UUID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(usr)
}

func (h *HTTP) logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Clear(w)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
}

func (h *HTTP) me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, apperr.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	usr, err := h.users.GetByUUID(id)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(usr)
}

func (h *HTTP) updateProfile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, apperr.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	var in struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	usr, err := h.users.UpdateProfile(id, in.Name, in.Email)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(usr)
}

func (h *HTTP) changePassword(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, apperr.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.users.ChangePassword(id, in.CurrentPassword, in.NewPassword); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "password changed"})
}
