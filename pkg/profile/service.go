package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/common/models"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	if req.Email == "" || req.Password == "" {
		return models.User{}, fmt.Errorf("email and password required")
	}
	userType := strings.ToLower(strings.TrimSpace(req.UserType))
	if userType != models.UserTypePatient && userType != models.UserTypeResponder {
		return models.User{}, fmt.Errorf("user_type must be patient or responder")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.repo.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		UserType:     userType,
		PasswordHash: string(hash),
		MedicalInfo: models.MedicalSummary{
			Allergies:   []string{},
			Conditions:  []string{},
			Medications: []string{},
		},
	})
	if err != nil {
		return models.User{}, err
	}

	if userType == models.UserTypeResponder {
		err := s.repo.UpsertResponderProfile(ctx, models.ResponderProfile{
			UserID:             user.ID,
			VerificationStatus: "pending",
		})
		if err != nil {
			return models.User{}, err
		}
	}

	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	hash, err := s.repo.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// MedicalSummary satisfies the emergency handler's provider interface.
func (s *Service) MedicalSummary(ctx context.Context, userID string) (models.MedicalSummary, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return models.MedicalSummary{}, ErrUserNotFound
	}
	return s.repo.GetMedicalInfo(ctx, id)
}

func (s *Service) GetMedicalInfo(ctx context.Context, id uuid.UUID) (models.MedicalSummary, error) {
	return s.repo.GetMedicalInfo(ctx, id)
}

func (s *Service) UpdateMedicalInfo(ctx context.Context, id uuid.UUID, summary models.MedicalSummary) error {
	return s.repo.UpdateMedicalInfo(ctx, id, summary)
}

func (s *Service) GetResponderProfile(ctx context.Context, id uuid.UUID) (models.ResponderProfile, error) {
	return s.repo.GetResponderProfile(ctx, id)
}

// SeedDemoAccounts creates the demo patient and responder used by the
// frontend walkthrough. Existing accounts are left untouched.
func (s *Service) SeedDemoAccounts(ctx context.Context) {
	demoPatient := models.RegisterRequest{
		Email:     "demo@patient.com",
		Password:  "demo123",
		FirstName: "Alex",
		LastName:  "Patient",
		Phone:     "+1-555-0101",
		UserType:  models.UserTypePatient,
	}
	demoResponder := models.RegisterRequest{
		Email:     "demo@responder.com",
		Password:  "demo123",
		FirstName: "Sarah",
		LastName:  "Responder",
		Phone:     "+1-555-0102",
		UserType:  models.UserTypeResponder,
	}

	patient, err := s.Register(ctx, demoPatient)
	switch {
	case errors.Is(err, ErrEmailAlreadyExists):
		// Already seeded.
	case err != nil:
		logger.Log.WithError(err).Warn("failed to seed demo patient")
	default:
		err := s.UpdateMedicalInfo(ctx, patient.ID, models.MedicalSummary{
			BloodType:   "O+",
			Allergies:   []string{"Penicillin", "Peanuts"},
			Conditions:  []string{"Asthma"},
			Medications: []string{"Ventolin"},
			EmergencyContact: models.EmergencyContact{
				Name:         "Sarah Wilson",
				Phone:        "+1-555-0123",
				Relationship: "Spouse",
			},
		})
		if err != nil {
			logger.Log.WithError(err).Warn("failed to seed demo medical info")
		}
	}

	responder, err := s.Register(ctx, demoResponder)
	switch {
	case errors.Is(err, ErrEmailAlreadyExists):
	case err != nil:
		logger.Log.WithError(err).Warn("failed to seed demo responder")
	default:
		err := s.repo.UpsertResponderProfile(ctx, models.ResponderProfile{
			UserID:             responder.ID,
			BadgeNumber:        "RES123",
			Organization:       "City Emergency Services",
			VerificationStatus: "verified",
		})
		if err != nil {
			logger.Log.WithError(err).Warn("failed to seed demo responder profile")
		}
	}
}
