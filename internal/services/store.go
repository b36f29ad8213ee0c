package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/pokebinder/internal/models"
)

// Store persists owned cards, collections and value snapshots.
type Store interface {
	GetCollection(ctx context.Context, userID string) (*models.Collection, error)
	ListCards(ctx context.Context, userID string) ([]models.OwnedCard, error)
	GetCard(ctx context.Context, userID, cardID string) (*models.OwnedCard, error)
	SaveCard(ctx context.Context, card *models.OwnedCard) error

	// CreateCard inserts card and writes coll in one transaction.
	CreateCard(ctx context.Context, card *models.OwnedCard, coll *models.Collection) error
	// DeleteCard writes coll and deletes the card record in one transaction.
	DeleteCard(ctx context.Context, coll *models.Collection, cardID string) error
	// SaveCollection writes coll if its stored version still matches coll.Version.
	SaveCollection(ctx context.Context, coll *models.Collection) error

	ListUserIDs(ctx context.Context) ([]string, error)
	SaveSnapshot(ctx context.Context, snap *models.CollectionValueSnapshot) error
	ListSnapshots(ctx context.Context, userID string, since time.Time) ([]models.CollectionValueSnapshot, error)
}

// GormStore is the sqlite-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreFailure, err)
}

// GetCollection returns the user's collection. A user that has never added a
// card gets an empty, unsaved collection with version 0.
func (s *GormStore) GetCollection(ctx context.Context, userID string) (*models.Collection, error) {
	var coll models.Collection
	err := s.db.WithContext(ctx).First(&coll, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Collection{UserID: userID}, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &coll, nil
}

func (s *GormStore) ListCards(ctx context.Context, userID string) ([]models.OwnedCard, error) {
	var cards []models.OwnedCard
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("added_at ASC").Find(&cards).Error; err != nil {
		return nil, storeErr(err)
	}
	return cards, nil
}

func (s *GormStore) GetCard(ctx context.Context, userID, cardID string) (*models.OwnedCard, error) {
	var card models.OwnedCard
	if err := s.db.WithContext(ctx).First(&card, "id = ? AND user_id = ?", cardID, userID).Error; err != nil {
		return nil, storeErr(err)
	}
	return &card, nil
}

func (s *GormStore) SaveCard(ctx context.Context, card *models.OwnedCard) error {
	return storeErr(s.db.WithContext(ctx).Save(card).Error)
}

func (s *GormStore) CreateCard(ctx context.Context, card *models.OwnedCard, coll *models.Collection) error {
	return storeErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(card).Error; err != nil {
			return err
		}
		return writeCollection(tx, coll)
	}))
}

func (s *GormStore) DeleteCard(ctx context.Context, coll *models.Collection, cardID string) error {
	return storeErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := writeCollection(tx, coll); err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", cardID, coll.UserID).Delete(&models.OwnedCard{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

func (s *GormStore) SaveCollection(ctx context.Context, coll *models.Collection) error {
	return storeErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return writeCollection(tx, coll)
	}))
}

// writeCollection is a compare-and-write on Collection.Version. On success the
// version in coll is advanced to the stored one.
func writeCollection(tx *gorm.DB, coll *models.Collection) error {
	expected := coll.Version
	next := *coll
	next.Version = expected + 1
	next.UpdatedAt = time.Now()

	if expected == 0 {
		var count int64
		if err := tx.Model(&models.Collection{}).Where("user_id = ?", coll.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConcurrentUpdate
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		*coll = next
		return nil
	}

	res := tx.Model(&models.Collection{UserID: coll.UserID}).
		Where("version = ?", expected).
		Select("card_ids", "prize", "elite", "version", "updated_at").
		Updates(&next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	*coll = next
	return nil
}

func (s *GormStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Collection{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

// SaveSnapshot upserts on (user_id, snapshot_date).
func (s *GormStore) SaveSnapshot(ctx context.Context, snap *models.CollectionValueSnapshot) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_cards", "unique_cards", "total_value", "prize_value", "elite_value",
		}),
	}).Create(snap).Error
	return storeErr(err)
}

func (s *GormStore) ListSnapshots(ctx context.Context, userID string, since time.Time) ([]models.CollectionValueSnapshot, error) {
	var snapshots []models.CollectionValueSnapshot
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("snapshot_date ASC")
	if !since.IsZero() {
		query = query.Where("snapshot_date >= ?", since)
	}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, storeErr(err)
	}
	return snapshots, nil
}
