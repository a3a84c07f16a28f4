package migration

import (
	"fmt"

	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	schedulerdomain "github.com/railzwaylabs/dormitory/internal/scheduler/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type, parents first.
func Models() []any {
	return []any{
		&dormitorydomain.Dormitory{},
		&dormitorydomain.NotificationConfig{},
		&dormitorydomain.PromptPayConfig{},
		&roomdomain.Room{},
		&roomdomain.Tenant{},
		&meterdomain.Reading{},
		&billdomain.Bill{},
		&billdomain.LineItem{},
		&billdomain.Payment{},
		&schedulerdomain.Checkpoint{},
	}
}

// AutoMigrate builds the schema from the models. It backs the sqlite driver
// and tests; PostgreSQL goes through Up.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
