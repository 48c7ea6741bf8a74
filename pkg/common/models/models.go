package models

import (
	"time"

	"github.com/google/uuid"
)

// Event bus envelope shared by producers and consumers.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // emergency.triggered, emergency.accessed, emergency.resolved
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Emergency lifecycle statuses. Resolved and cancelled are terminal.
const (
	EmergencyStatusActive    = "active"
	EmergencyStatusResolved  = "resolved"
	EmergencyStatusCancelled = "cancelled"
)

// Location is carried opaquely inside the token payload and copied onto the
// lifecycle record for audit display.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type MedicalSummary struct {
	BloodType        string           `json:"blood_type"`
	Allergies        []string         `json:"allergies"`
	Conditions       []string         `json:"conditions"`
	Medications      []string         `json:"medications"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
}

// EmergencyEvent is the authoritative lifecycle record for an issued token.
// Whether the token itself still decrypts is a separate question; both gates
// must pass before a scan is honored.
type EmergencyEvent struct {
	EmergencyID string     `json:"emergency_id"`
	UserID      string     `json:"user_id"`
	Status      string     `json:"status"`
	Location    Location   `json:"location"`
	AccessedBy  []string   `json:"accessed_by"`
	QRData      string     `json:"qr_data,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Users and profiles

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	UserType  string    `json:"user_type"` // patient, responder
	CreatedAt time.Time `json:"created_at"`
}

const (
	UserTypePatient   = "patient"
	UserTypeResponder = "responder"
)

type ResponderProfile struct {
	UserID             uuid.UUID `json:"user_id"`
	BadgeNumber        string    `json:"badge_number"`
	Organization       string    `json:"organization"`
	Department         string    `json:"department,omitempty"`
	VerificationStatus string    `json:"verification_status"` // pending, verified, rejected
	LicenseNumber      string    `json:"license_number,omitempty"`
}

// API requests and responses

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	UserType  string `json:"user_type"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	UserType    string `json:"user_type"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
}

type TriggerEmergencyRequest struct {
	Location Location `json:"location"`
}

type TriggerEmergencyResponse struct {
	EmergencyID string    `json:"emergency_id"`
	QRCode      string    `json:"qr_code"` // data:image/png;base64,...
	QRData      string    `json:"qr_data"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ScanRequest struct {
	EncryptedData string `json:"encrypted_data"`
}

type ScanResponse struct {
	EmergencyData map[string]interface{} `json:"emergency_data"`
	Message       string                 `json:"message"`
}

type UpdateMedicalInfoRequest struct {
	MedicalInfo MedicalSummary `json:"medical_info"`
}
