package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Dormitory struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;index"`
	Address   *string      `json:"address,omitempty" gorm:"type:text"`
	Active    bool         `json:"active" gorm:"not null"`
	DueDay    int          `json:"due_day" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Dormitory) TableName() string { return "dormitories" }

// NotificationConfig is the per-dormitory outbound channel. The credential
// is sealed by the vault before it is stored.
type NotificationConfig struct {
	DormitoryID         snowflake.ID      `gorm:"primaryKey"`
	Channel             string            `gorm:"type:varchar(32);not null"`
	Destination         string            `gorm:"type:text;not null"`
	EncryptedCredential []byte            `gorm:"type:bytea"`
	Active              bool              `gorm:"not null"`
	Events              datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CreatedAt           time.Time         `gorm:"not null"`
	UpdatedAt           time.Time         `gorm:"not null"`
}

func (NotificationConfig) TableName() string { return "notification_configs" }

// EventEnabled reads one switch from the stored event map.
func (c NotificationConfig) EventEnabled(event string) bool {
	v, ok := c.Events[event].(bool)
	return ok && v
}

type PromptPayConfig struct {
	DormitoryID snowflake.ID `json:"dormitory_id" gorm:"primaryKey"`
	PayeeID     string       `json:"payee_id" gorm:"type:varchar(32);not null"`
	DisplayName string       `json:"display_name" gorm:"type:text;not null"`
	Active      bool         `json:"active" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (PromptPayConfig) TableName() string { return "promptpay_configs" }
