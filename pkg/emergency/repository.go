package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lifeline-health/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the Postgres-backed EventStore.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type eventModel struct {
	EmergencyID string         `gorm:"primaryKey;column:emergency_id"`
	UserID      string         `gorm:"column:user_id;index"`
	Status      string         `gorm:"column:status;index"`
	Location    datatypes.JSON `gorm:"column:location"`
	AccessedBy  datatypes.JSON `gorm:"column:accessed_by"`
	QRData      string         `gorm:"column:qr_data;type:text"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	ResolvedAt  *time.Time     `gorm:"column:resolved_at"`
}

func (eventModel) TableName() string { return "emergency_events" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&eventModel{})
}

func (r *Repository) Insert(ctx context.Context, event models.EmergencyEvent) error {
	row, err := toRow(event)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, emergencyID string) (models.EmergencyEvent, error) {
	var row eventModel
	err := r.db.WithContext(ctx).First(&row, "emergency_id = ?", emergencyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.EmergencyEvent{}, ErrNotFound
	}
	if err != nil {
		return models.EmergencyEvent{}, err
	}
	return toEvent(row)
}

// RecordAccess locks the row for the duration of the read-modify-write so
// concurrent responder scans cannot drop each other's log entries.
func (r *Repository) RecordAccess(ctx context.Context, emergencyID, responderID string) (models.EmergencyEvent, error) {
	var result models.EmergencyEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row eventModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "emergency_id = ?", emergencyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if row.Status != models.EmergencyStatusActive {
			return ErrNotActive
		}

		var accessedBy []string
		if len(row.AccessedBy) > 0 {
			if err := json.Unmarshal(row.AccessedBy, &accessedBy); err != nil {
				return err
			}
		}
		if !contains(accessedBy, responderID) {
			accessedBy = append(accessedBy, responderID)
			raw, err := json.Marshal(accessedBy)
			if err != nil {
				return err
			}
			row.AccessedBy = raw
			if err := tx.Model(&eventModel{}).
				Where("emergency_id = ?", emergencyID).
				Update("accessed_by", row.AccessedBy).Error; err != nil {
				return err
			}
		}

		result, err = toEvent(row)
		return err
	})
	if err != nil {
		return models.EmergencyEvent{}, err
	}
	return result, nil
}

func (r *Repository) Resolve(ctx context.Context, emergencyID string) (models.EmergencyEvent, error) {
	var result models.EmergencyEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row eventModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "emergency_id = ?", emergencyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		switch row.Status {
		case models.EmergencyStatusResolved:
			// Duplicate resolve calls are tolerated.
		case models.EmergencyStatusCancelled:
			return ErrNotActive
		default:
			now := time.Now()
			row.Status = models.EmergencyStatusResolved
			row.ResolvedAt = &now
			if err := tx.Model(&eventModel{}).
				Where("emergency_id = ?", emergencyID).
				Updates(map[string]interface{}{
					"status":      row.Status,
					"resolved_at": row.ResolvedAt,
				}).Error; err != nil {
				return err
			}
		}

		result, err = toEvent(row)
		return err
	})
	if err != nil {
		return models.EmergencyEvent{}, err
	}
	return result, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.EmergencyEvent, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("status = ?", models.EmergencyStatusActive).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEvents(rows)
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.EmergencyEvent, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEvents(rows)
}

func toRow(event models.EmergencyEvent) (eventModel, error) {
	location, err := json.Marshal(event.Location)
	if err != nil {
		return eventModel{}, err
	}
	accessedBy := event.AccessedBy
	if accessedBy == nil {
		accessedBy = []string{}
	}
	accessed, err := json.Marshal(accessedBy)
	if err != nil {
		return eventModel{}, err
	}
	return eventModel{
		EmergencyID: event.EmergencyID,
		UserID:      event.UserID,
		Status:      event.Status,
		Location:    location,
		AccessedBy:  accessed,
		QRData:      event.QRData,
		CreatedAt:   event.CreatedAt,
		ResolvedAt:  event.ResolvedAt,
	}, nil
}

func toEvent(row eventModel) (models.EmergencyEvent, error) {
	var location models.Location
	if len(row.Location) > 0 {
		if err := json.Unmarshal(row.Location, &location); err != nil {
			return models.EmergencyEvent{}, err
		}
	}
	accessedBy := []string{}
	if len(row.AccessedBy) > 0 {
		if err := json.Unmarshal(row.AccessedBy, &accessedBy); err != nil {
			return models.EmergencyEvent{}, err
		}
	}
	return models.EmergencyEvent{
		EmergencyID: row.EmergencyID,
		UserID:      row.UserID,
		Status:      row.Status,
		Location:    location,
		AccessedBy:  accessedBy,
		QRData:      row.QRData,
		CreatedAt:   row.CreatedAt,
		ResolvedAt:  row.ResolvedAt,
	}, nil
}

func toEvents(rows []eventModel) ([]models.EmergencyEvent, error) {
	events := make([]models.EmergencyEvent, 0, len(rows))
	for _, row := range rows {
		event, err := toEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
