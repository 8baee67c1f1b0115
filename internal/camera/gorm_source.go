package camera

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/crowd-playback/pkg/log"
)

// Model is the GORM model for the cameras table.
type Model struct {
	ID        uint      `gorm:"primaryKey"`
	DeviceID  string    `gorm:"type:varchar(64);index;not null"`
	Name      string    `gorm:"type:varchar(64);not null"`
	Position  int       `gorm:"default:0"`
	Enabled   bool      `gorm:"default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for Model.
func (Model) TableName() string {
	return "cameras"
}

// GormSource reads the camera catalog from a SQL database.
type GormSource struct {
	db *gorm.DB
}

// NewGormSource creates a new GORM-backed camera source.
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// Cameras returns the enabled cameras of a device ordered by grid position.
func (s *GormSource) Cameras(ctx context.Context, deviceID string) ([]string, error) {
	l := log.Ctx(ctx)

	var models []Model
	result := s.db.WithContext(ctx).
		Where("device_id = ? AND enabled = ?", deviceID, true).
		Order("position ASC, name ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldDeviceID, deviceID).Msg("failed to list cameras")
		return nil, result.Error
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}

var _ Source = (*GormSource)(nil)
