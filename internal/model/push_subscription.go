package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Trucks []SubscriptionTruck `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionTruck maps a subscription to a truck whose defect alerts it receives.
type SubscriptionTruck struct {
	Endpoint    string `gorm:"primaryKey"`
	TruckNumber int64  `gorm:"primaryKey;autoIncrement:false"`
}
