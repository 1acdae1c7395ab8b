package payments

import (
	"context"

	"github.com/BenKrueger/DealerDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the payment core. All
// mutating methods are meant to run inside Transaction so the idempotency
// claim and the side effects commit or roll back as one unit.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// ClaimEvent inserts the idempotency record for an event id. The insert
	// relies on the primary-key constraint: claimed is true for exactly one
	// caller across all processes, false for every retry or concurrent racer.
	ClaimEvent(rec *models.IdempotencyRecord) (bool, error)

	GetSubscriptionForUpdate(provider, externalSubscriptionID string) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error

	GetOrCreateUserSettings(userID uint) (*models.UserSettings, error)
	SaveUserSettings(us *models.UserSettings) error

	GetMerchantForUpdate(merchantID string) (*models.MerchantAccount, error)
	SaveMerchant(m *models.MerchantAccount) error
	// UnlistRetailers flips every currently listed retailer of the merchant
	// to unlisted and returns the number of affected rows.
	UnlistRetailers(merchantID string) (int64, error)

	CreateAuditLogEntry(entry *models.AuditLogEntry) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) ClaimEvent(rec *models.IdempotencyRecord) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(rec)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetSubscriptionForUpdate(provider, externalSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND external_subscription_id = ?", provider, externalSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	return models.GetOrCreateUserSettings(r.db, userID)
}

func (r *gormRepository) SaveUserSettings(us *models.UserSettings) error {
	return r.db.Save(us).Error
}

func (r *gormRepository) GetMerchantForUpdate(merchantID string) (*models.MerchantAccount, error) {
	var m models.MerchantAccount
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ?", merchantID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) SaveMerchant(m *models.MerchantAccount) error {
	return r.db.Save(m).Error
}

func (r *gormRepository) UnlistRetailers(merchantID string) (int64, error) {
	tx := r.db.Model(&models.RetailerListing{}).
		Where("merchant_id = ? AND listed = ?", merchantID, true).
		Update("listed", false)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) CreateAuditLogEntry(entry *models.AuditLogEntry) error {
	return r.db.Create(entry).Error
}
