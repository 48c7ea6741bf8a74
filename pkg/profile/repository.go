package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lifeline-health/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex"`
	FirstName    string
	LastName     string
	Phone        string
	UserType     string `gorm:"index"`
	PasswordHash string
	MedicalInfo  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

type ResponderProfileModel struct {
	UserID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	BadgeNumber        string
	Organization       string
	Department         string
	VerificationStatus string `gorm:"index"`
	LicenseNumber      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ResponderProfileModel) TableName() string {
	return "responder_profiles"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&UserModel{}, &ResponderProfileModel{})
}

type CreateUserInput struct {
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	UserType     string
	PasswordHash string
	MedicalInfo  models.MedicalSummary
}

func (r *Repository) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(input.Email))

	var existing int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", normalizedEmail).Count(&existing).Error; err != nil {
		return models.User{}, err
	}
	if existing > 0 {
		return models.User{}, ErrEmailAlreadyExists
	}

	medical, err := json.Marshal(input.MedicalInfo)
	if err != nil {
		return models.User{}, err
	}

	user := UserModel{
		ID:           uuid.New(),
		Email:        normalizedEmail,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		UserType:     input.UserType,
		PasswordHash: input.PasswordHash,
		MedicalInfo:  medical,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return toUser(user), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user UserModel
	err := r.db.WithContext(ctx).
		First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return toUser(user), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user UserModel
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return toUser(user), nil
}

func (r *Repository) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	var user UserModel
	err := r.db.WithContext(ctx).Select("password_hash").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return user.PasswordHash, nil
}

func (r *Repository) GetMedicalInfo(ctx context.Context, id uuid.UUID) (models.MedicalSummary, error) {
	var user UserModel
	err := r.db.WithContext(ctx).Select("medical_info").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MedicalSummary{}, ErrUserNotFound
	}
	if err != nil {
		return models.MedicalSummary{}, err
	}

	var summary models.MedicalSummary
	if len(user.MedicalInfo) > 0 {
		if err := json.Unmarshal(user.MedicalInfo, &summary); err != nil {
			return models.MedicalSummary{}, err
		}
	}
	return summary, nil
}

func (r *Repository) UpdateMedicalInfo(ctx context.Context, id uuid.UUID, summary models.MedicalSummary) error {
	medical, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"medical_info": datatypes.JSON(medical),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) UpsertResponderProfile(ctx context.Context, profile models.ResponderProfile) error {
	row := ResponderProfileModel{
		UserID:             profile.UserID,
		BadgeNumber:        profile.BadgeNumber,
		Organization:       profile.Organization,
		Department:         profile.Department,
		VerificationStatus: profile.VerificationStatus,
		LicenseNumber:      profile.LicenseNumber,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *Repository) GetResponderProfile(ctx context.Context, id uuid.UUID) (models.ResponderProfile, error) {
	var row ResponderProfileModel
	err := r.db.WithContext(ctx).First(&row, "user_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ResponderProfile{}, ErrUserNotFound
	}
	if err != nil {
		return models.ResponderProfile{}, err
	}
	return models.ResponderProfile{
		UserID:             row.UserID,
		BadgeNumber:        row.BadgeNumber,
		Organization:       row.Organization,
		Department:         row.Department,
		VerificationStatus: row.VerificationStatus,
		LicenseNumber:      row.LicenseNumber,
	}, nil
}

func toUser(user UserModel) models.User {
	return models.User{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		UserType:  user.UserType,
		CreatedAt: user.CreatedAt,
	}
}
