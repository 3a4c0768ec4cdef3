package entities

import "time"

// MediaAsset is the persisted record of one published HLS rendition. Exactly
// one row exists per (episode_id, language_tag); a re-publish repoints the row
// at a fresh asset prefix and abandons the old blobs.
type MediaAsset struct {
	ID              uint   `gorm:"primaryKey"`
	EpisodeID       string `gorm:"type:varchar(64);not null;uniqueIndex:idx_media_asset_key,priority:1"`
	LanguageTag     string `gorm:"type:varchar(16);not null;uniqueIndex:idx_media_asset_key,priority:2"`
	AssetID         string `gorm:"type:varchar(40);not null;index"`
	Category        string `gorm:"type:varchar(32);not null"`
	Prefix          string `gorm:"type:varchar(255);not null"`
	PlaylistKey     string `gorm:"type:varchar(255);not null"`
	TemplateKey     string `gorm:"type:varchar(255);not null"`
	SegmentCount    int    `gorm:"not null"`
	URLExpiresAt    time.Time
	LastRefreshedAt time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (MediaAsset) TableName() string {
	return "media_assets"
}
