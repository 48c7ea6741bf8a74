package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lifeline-health/platform/pkg/auth"
	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/common/models"
)

type Handler struct {
	service *Service
	jwt     *auth.JWTManager
}

func NewHandler(service *Service, jwt *auth.JWTManager) *Handler {
	return &Handler{service: service, jwt: jwt}
}

// RegisterPublic mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublic(r *mux.Router) {
	r.HandleFunc("/auth/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
}

// Register mounts the endpoints that require an authenticated user.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/profiles/me", h.handleGetProfile).Methods(http.MethodGet)
	r.HandleFunc("/profiles/me/medical", h.handleGetMedicalInfo).Methods(http.MethodGet)
	r.HandleFunc("/profiles/me/medical", h.handleUpdateMedicalInfo).Methods(http.MethodPut)
	r.HandleFunc("/profiles/me/responder", h.handleGetResponderProfile).Methods(http.MethodGet)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if errors.Is(err, ErrEmailAlreadyExists) {
		http.Error(w, "email already registered", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to register user")
		http.Error(w, "failed to register", http.StatusBadRequest)
		return
	}

	h.writeAuthResponse(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to authenticate user")
		http.Error(w, "failed to authenticate", http.StatusInternalServerError)
		return
	}

	h.writeAuthResponse(w, http.StatusOK, user)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get user")
		http.Error(w, "failed to get user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) handleGetMedicalInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	summary, err := h.service.GetMedicalInfo(r.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get medical info")
		http.Error(w, "failed to get medical info", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"medical_info": summary})
}

func (h *Handler) handleUpdateMedicalInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req models.UpdateMedicalInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	err := h.service.UpdateMedicalInfo(r.Context(), claims.UserID, req.MedicalInfo)
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to update medical info")
		http.Error(w, "failed to update medical info", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetResponderProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	profile, err := h.service.GetResponderProfile(r.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, "responder profile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get responder profile")
		http.Error(w, "failed to get responder profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

func (h *Handler) writeAuthResponse(w http.ResponseWriter, status int, user models.User) {
	token, err := h.jwt.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed to issue token")
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, models.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      user.ID.String(),
		UserType:    user.UserType,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
