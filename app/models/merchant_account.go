package models

import "time"

// MerchantAccount carries the ordering high-water mark for merchant payment
// events. Retailer listings hang off the merchant id in RetailerListing.
type MerchantAccount struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	MerchantID  string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"merchant_id"`
	Name        string     `gorm:"type:varchar(150);default:''" json:"name"`
	LastEventAt *time.Time `gorm:"type:datetime(6);default:null" json:"last_event_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RetailerListing is a merchant's presence on a retailer channel. A merchant
// payment failure unlists every currently listed retailer for that merchant.
type RetailerListing struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MerchantID string    `gorm:"type:varchar(191);not null;index:ux_retailer_listings_merchant_retailer,unique,priority:1" json:"merchant_id"`
	RetailerID string    `gorm:"type:varchar(191);not null;index:ux_retailer_listings_merchant_retailer,unique,priority:2" json:"retailer_id"`
	Listed     bool      `gorm:"default:true;index" json:"listed"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
