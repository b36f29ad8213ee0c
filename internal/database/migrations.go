package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/pokebinder/internal/models"
)

// RunMigrations runs any custom data migrations after schema changes.
// Each migration is safe to run repeatedly.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if err := normalizeQuantities(db, log); err != nil {
		return err
	}
	return backfillDerivedRarity(db, log)
}

// normalizeQuantities raises stored quantities below one to one.
func normalizeQuantities(db *gorm.DB, log *zap.Logger) error {
	result := db.Model(&models.OwnedCard{}).
		Where("value_quantity IS NULL OR value_quantity < 1").
		Update("value_quantity", 1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("normalized owned card quantities", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

// backfillDerivedRarity fills the rarity grade and the WOTC era flag for cards
// stored before either was recorded.
func backfillDerivedRarity(db *gorm.DB, log *zap.Logger) error {
	var cards []models.OwnedCard
	if err := db.Where("rarity_grade IS NULL OR rarity_grade = 0").Find(&cards).Error; err != nil {
		return err
	}

	for i := range cards {
		c := &cards[i]
		updates := map[string]any{
			"rarity_grade": models.RarityGrade(c.Rarity.Type),
			"wotc":         models.IsWOTCSeries(c.Set.Series),
		}
		if err := db.Model(&models.OwnedCard{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			log.Warn("failed to backfill rarity", zap.String("card_id", c.ID), zap.Error(err))
		}
	}
	if len(cards) > 0 {
		log.Info("backfilled rarity grades", zap.Int("rows", len(cards)))
	}
	return nil
}
