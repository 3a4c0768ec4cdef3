package asset

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	stream "vodflow/stream-api/internal/domain/stream"
	"vodflow/stream-api/internal/infrastructure/database/entities"
	"vodflow/stream-api/internal/utils/platformerrors"
)

// Repository handles media asset persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert points the (episode, language) key at a freshly published asset.
// Old asset blobs are abandoned in storage, not deleted here.
func (r *Repository) Upsert(ctx context.Context, obj *stream.MediaAsset) error {
	entity := entities.MediaAsset{
		EpisodeID:       obj.Key.EpisodeID,
		LanguageTag:     obj.Key.LanguageTag,
		AssetID:         obj.AssetID,
		Category:        obj.Category,
		Prefix:          obj.Prefix,
		PlaylistKey:     obj.PlaylistKey,
		TemplateKey:     obj.TemplateKey,
		SegmentCount:    obj.SegmentCount,
		URLExpiresAt:    obj.URLExpiresAt,
		LastRefreshedAt: obj.LastRefreshedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "episode_id"}, {Name: "language_tag"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"asset_id", "category", "prefix", "playlist_key", "template_key",
			"segment_count", "url_expires_at", "last_refreshed_at", "updated_at",
		}),
	}).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to upsert media asset",
			err,
			"4f1c9a7e-2d3b-4c5e-8a9f-7b6c5d4e3f2a",
		)
	}
	return nil
}

func (r *Repository) GetByKey(ctx context.Context, key stream.AssetKey) (*stream.MediaAsset, error) {
	var entity entities.MediaAsset
	err := r.db.WithContext(ctx).
		Where("episode_id = ? AND language_tag = ?", key.EpisodeID, key.LanguageTag).
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"media asset not found",
				err,
				"8d2e6f1a-9b3c-4d7e-a5f8-1c2b3a4d5e6f",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get media asset",
			err,
			"3b5d7f9a-1c2e-4a6b-8d0f-2e4a6c8b0d1f",
		)
	}
	obj := mapEntity(entity)
	return &obj, nil
}

// ListExpiring returns assets whose last-issued playlist URL expires before
// the given deadline. The scheduler re-signs these in the background.
func (r *Repository) ListExpiring(ctx context.Context, deadline time.Time) ([]*stream.MediaAsset, error) {
	var rows []entities.MediaAsset
	err := r.db.WithContext(ctx).
		Where("url_expires_at <= ?", deadline).
		Order("url_expires_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list expiring assets",
			err,
			"6a8c0e2b-4d6f-4b8a-9c1e-3f5b7d9a1c2e",
		)
	}
	out := make([]*stream.MediaAsset, 0, len(rows))
	for _, row := range rows {
		obj := mapEntity(row)
		out = append(out, &obj)
	}
	return out, nil
}

// RecordRefresh stores the outcome of a successful playlist re-sign.
func (r *Repository) RecordRefresh(ctx context.Context, key stream.AssetKey, refreshedAt, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.MediaAsset{}).
		Where("episode_id = ? AND language_tag = ?", key.EpisodeID, key.LanguageTag).
		Updates(map[string]any{
			"last_refreshed_at": refreshedAt,
			"url_expires_at":    expiresAt,
		}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to record refresh",
			err,
			"9e1f3a5c-7b9d-4e2f-8a4c-6b8d0f2a4c6e",
		)
	}
	return nil
}

func mapEntity(entity entities.MediaAsset) stream.MediaAsset {
	return stream.MediaAsset{
		Key: stream.AssetKey{
			EpisodeID:   entity.EpisodeID,
			LanguageTag: entity.LanguageTag,
		},
		AssetID:         entity.AssetID,
		Category:        entity.Category,
		Prefix:          entity.Prefix,
		PlaylistKey:     entity.PlaylistKey,
		TemplateKey:     entity.TemplateKey,
		SegmentCount:    entity.SegmentCount,
		URLExpiresAt:    entity.URLExpiresAt,
		LastRefreshedAt: entity.LastRefreshedAt,
		CreatedAt:       entity.CreatedAt,
		UpdatedAt:       entity.UpdatedAt,
	}
}
