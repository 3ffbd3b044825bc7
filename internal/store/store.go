package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"truck-inspection-backend/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("concurrent modification")
	ErrCorrupt  = errors.New("stored inspections are unreadable")
)

// Repository is the Persisted List: an append-only, ordered sequence of
// inspection records.
type Repository interface {
	Append(ctx context.Context, rec model.InspectionRecord) error
	ListAll(ctx context.Context) ([]model.InspectionRecord, error)
}

// Subscriptions stores push subscriptions for defect alerts.
type Subscriptions interface {
	PutSubscription(ctx context.Context, sub model.PushSubscription, trucks []int64) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscribedTrucks(ctx context.Context, endpoint string) ([]int64, error)
	SubscriptionsForTruck(ctx context.Context, truckNumber int64) ([]model.PushSubscription, error)
}

// GormStore implements Repository and Subscriptions using GORM.
type GormStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, logger *zap.SugaredLogger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// Append inserts one record. Each append is a single INSERT, so concurrent
// writers never overwrite each other.
func (s *GormStore) Append(ctx context.Context, rec model.InspectionRecord) error {
	results := rec.Results
	if results == nil {
		results = model.Results{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	row := model.Inspection{
		TruckNumber: rec.TruckNumber,
		Inspector:   rec.Inspector,
		Timestamp:   rec.Timestamp,
		Results:     datatypes.JSON(raw),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert inspection for truck %d: %w", rec.TruckNumber, err)
	}
	return nil
}

// ListAll returns every record in insertion order. A row whose results
// cannot be decoded is returned with nil Results.
func (s *GormStore) ListAll(ctx context.Context) ([]model.InspectionRecord, error) {
	var rows []model.Inspection
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	records := make([]model.InspectionRecord, 0, len(rows))
	for _, row := range rows {
		rec := model.InspectionRecord{
			TruckNumber: row.TruckNumber,
			Inspector:   row.Inspector,
			Timestamp:   row.Timestamp,
		}
		if len(row.Results) > 0 {
			if err := json.Unmarshal(row.Results, &rec.Results); err != nil {
				s.logger.Warnw("skipping unreadable inspection results", "id", row.ID, "err", err)
				rec.Results = nil
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// PutSubscription creates or replaces a subscription and its truck list.
func (s *GormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, trucks []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.Trucks = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionTruck{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscribed trucks: %w", err)
		}

		if len(trucks) == 0 {
			return nil
		}
		seen := make(map[int64]bool, len(trucks))
		rows := make([]model.SubscriptionTruck, 0, len(trucks))
		for _, truck := range trucks {
			if seen[truck] {
				continue
			}
			seen[truck] = true
			rows = append(rows, model.SubscriptionTruck{Endpoint: sub.Endpoint, TruckNumber: truck})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save subscribed trucks: %w", err)
		}
		return nil
	})
}

// DeleteSubscription removes a subscription and its truck list.
func (s *GormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionTruck{}).Error; err != nil {
			return err
		}
		return tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
	})
}

// SubscribedTrucks returns the trucks an endpoint is subscribed to.
func (s *GormStore) SubscribedTrucks(ctx context.Context, endpoint string) ([]int64, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Trucks").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: subscription %s", ErrNotFound, endpoint)
	}
	if err != nil {
		return nil, err
	}

	trucks := make([]int64, len(sub.Trucks))
	for i, t := range sub.Trucks {
		trucks[i] = t.TruckNumber
	}
	return trucks, nil
}

// SubscriptionsForTruck returns every subscription that wants alerts for a truck.
func (s *GormStore) SubscriptionsForTruck(ctx context.Context, truckNumber int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_trucks st ON st.endpoint = push_subscriptions.endpoint").
		Where("st.truck_number = ?", truckNumber).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for truck %d: %w", truckNumber, err)
	}
	return subs, nil
}
