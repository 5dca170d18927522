package models

// PushSubscription - подписка браузера на Web Push
type PushSubscription struct {
	BaseModel
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	Endpoint  string `gorm:"not null;uniqueIndex" json:"endpoint"`
	P256dh    string `gorm:"not null" json:"p256dh"`
	Auth      string `gorm:"not null" json:"auth"`
	UserAgent string `json:"user_agent,omitempty"`
}
