package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lifeline-health/platform/pkg/auth"
	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/common/models"
	"github.com/lifeline-health/platform/pkg/qrtoken"
)

// MedicalInfoProvider hands the handler the patient's stored medical summary
// at trigger time. The profile service implements it.
type MedicalInfoProvider interface {
	MedicalSummary(ctx context.Context, userID string) (models.MedicalSummary, error)
}

type Handler struct {
	service  *Service
	profiles MedicalInfoProvider
}

func NewHandler(service *Service, profiles MedicalInfoProvider) *Handler {
	return &Handler{service: service, profiles: profiles}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/emergencies", h.handleTrigger).Methods(http.MethodPost)
	r.HandleFunc("/emergencies/scan", h.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/emergencies/active", h.handleListActive).Methods(http.MethodGet)
	r.HandleFunc("/emergencies/mine", h.handleListMine).Methods(http.MethodGet)
	r.HandleFunc("/emergencies/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/emergencies/{id}/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/emergencies/{id}/resolve", h.handleResolve).Methods(http.MethodPost)
	r.HandleFunc("/emergencies/{id}/access-log", h.handleAccessLog).Methods(http.MethodGet)
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.TriggerEmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	userID := claims.UserID.String()
	summary, err := h.profiles.MedicalSummary(r.Context(), userID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load medical summary")
		http.Error(w, "medical profile not found", http.StatusNotFound)
		return
	}

	result, err := h.service.Trigger(r.Context(), userID, summary, req.Location)
	if err != nil {
		logger.Log.WithError(err).Error("failed to trigger emergency")
		http.Error(w, "failed to trigger emergency", http.StatusInternalServerError)
		return
	}

	png, err := qrtoken.RenderPNG(result.Token.QRData, 0)
	if err != nil {
		logger.Log.WithError(err).Error("failed to render QR code")
		http.Error(w, "failed to render QR code", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, models.TriggerEmergencyResponse{
		EmergencyID: result.Event.EmergencyID,
		QRCode:      qrtoken.DataURI(png),
		QRData:      result.Token.QRData,
		ExpiresAt:   result.Token.ExpiresAt,
	})
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if claims.UserType != models.UserTypeResponder {
		http.Error(w, "responder account required", http.StatusForbidden)
		return
	}

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.EncryptedData == "" {
		http.Error(w, "encrypted_data is required", http.StatusBadRequest)
		return
	}

	// Responders arriving via organization SSO carry no platform uuid.
	responderID := claims.UserID.String()
	if claims.UserID == uuid.Nil {
		responderID = claims.Subject
	}

	payload, _, err := h.service.Scan(r.Context(), req.EncryptedData, responderID)
	if err != nil {
		writeScanError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ScanResponse{
		EmergencyData: payload,
		Message:       "QR code scanned successfully",
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "emergency not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get emergency")
		http.Error(w, "failed to get emergency", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"emergency": event})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "emergency not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get emergency status")
		http.Error(w, "failed to get status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": status})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Resolve(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "emergency not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrNotActive):
		http.Error(w, "emergency is not active", http.StatusConflict)
		return
	case err != nil:
		logger.Log.WithError(err).Error("failed to resolve emergency")
		http.Error(w, "failed to resolve emergency", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"emergency": event})
}

func (h *Handler) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	accessedBy, err := h.service.AccessLog(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "emergency not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get access log")
		http.Error(w, "failed to get access log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accessed_by": accessedBy})
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims.UserType != models.UserTypeResponder {
		http.Error(w, "responder account required", http.StatusForbidden)
		return
	}
	events, err := h.service.ListActive(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list active emergencies")
		http.Error(w, "failed to list emergencies", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": events})
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	events, err := h.service.ListByUser(r.Context(), claims.UserID.String())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list emergencies")
		http.Error(w, "failed to list emergencies", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": events})
}

// writeScanError keeps the five outcome kinds distinct for the client without
// exposing anything about why the cryptography failed.
func writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, qrtoken.ErrExpired):
		http.Error(w, "QR code has expired", http.StatusGone)
	case errors.Is(err, qrtoken.ErrInvalidToken):
		http.Error(w, "invalid QR code", http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "emergency not found", http.StatusNotFound)
	case errors.Is(err, ErrNotActive):
		http.Error(w, "emergency is no longer active", http.StatusConflict)
	default:
		logger.Log.WithError(err).Error("scan failed")
		http.Error(w, "scan failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
