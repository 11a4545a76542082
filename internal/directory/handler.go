package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediconnect/platform/pkg/logging"
)

// Handler exposes login and user administration over HTTP.
type Handler struct {
	repo   Repository
	auth   *AuthService
	logger *logging.Logger
}

// NewHandler creates the directory handler.
func NewHandler(repo Repository, auth *AuthService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, auth: auth, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Legacy is the old simple-auth account shape. When present it is
	// reconciled into the canonical user at this boundary.
	Legacy *LegacyAccount `json:"legacy,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		token string
		user  *User
		err   error
	)
	if req.Legacy != nil {
		token, user, err = h.auth.LoginLegacy(r.Context(), *req.Legacy, req.Password)
	} else {
		token, user, err = h.auth.Login(r.Context(), req.Email, req.Password)
	}
	if err != nil {
		http.Error(w, ErrBadCredentials.Error(), http.StatusUnauthorized)
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// ListDoctors handles GET /api/doctors, the booking form's doctor picker.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.repo.List(r.Context(), RoleDoctor)
	if err != nil {
		http.Error(w, "failed to list doctors", http.StatusInternalServerError)
		return
	}
	active := doctors[:0]
	for _, d := range doctors {
		if d.Active {
			active = append(active, d)
		}
	}
	h.writeJSON(w, http.StatusOK, active)
}

// ListUsers handles GET /api/admin/users with an optional role filter.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var role Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, ok := ParseRole(raw)
		if !ok {
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		role = parsed
	}
	users, err := h.repo.List(r.Context(), role)
	if err != nil {
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Role      string `json:"role"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Specialty string `json:"specialty"`
}

// CreateUser handles POST /api/admin/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	role, ok := ParseRole(req.Role)
	if !ok {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" {
		http.Error(w, "name and email are required", http.StatusBadRequest)
		return
	}

	user, err := h.repo.Create(r.Context(), &User{
		Role:      role,
		Name:      req.Name,
		Email:     req.Email,
		Specialty: req.Specialty,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	h.writeJSON(w, http.StatusCreated, user)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole handles PATCH /api/admin/users/{id}/role.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	role, ok := ParseRole(req.Role)
	if !ok {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	user, err := h.repo.SetRole(r.Context(), chi.URLParam(r, "id"), role)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles PATCH /api/admin/users/{id}/active.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.repo.SetActive(r.Context(), chi.URLParam(r, "id"), req.Active)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, "directory error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
