package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// PropCorrelationSample is an observed co-occurrence record for one player's
// prop pair. Counts form a 2x2 contingency table over settled games:
// BothHit, OnlyFirstHit, OnlySecondHit, NeitherHit. Prop types are stored in
// lexical order so each pair has exactly one row per sport and player.
type PropCorrelationSample struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Sport         string         `gorm:"not null;uniqueIndex:idx_sample_pair" json:"sport"`
	PlayerName    string         `gorm:"not null;uniqueIndex:idx_sample_pair" json:"player_name"`
	PropTypeA     string         `gorm:"not null;uniqueIndex:idx_sample_pair" json:"prop_type_a"`
	PropTypeB     string         `gorm:"not null;uniqueIndex:idx_sample_pair" json:"prop_type_b"`
	BothHit       int            `gorm:"not null" json:"both_hit"`
	OnlyFirstHit  int            `gorm:"not null" json:"only_first_hit"`
	OnlySecondHit int            `gorm:"not null" json:"only_second_hit"`
	NeitherHit    int            `gorm:"not null" json:"neither_hit"`
	SampleSize    int            `gorm:"not null" json:"sample_size"`
	Correlation   float64        `gorm:"not null" json:"correlation"`
	Source        string         `json:"source"`
	SeasonTags    pq.StringArray `gorm:"type:text[]" json:"season_tags"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CapturedAt    time.Time      `gorm:"not null;index" json:"captured_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PropCorrelationSample) TableName() string {
	return "prop_correlation_samples"
}
