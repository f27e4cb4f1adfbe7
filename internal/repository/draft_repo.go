package repository

import (
	"context"
	"errors"

	"procurehub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleDraft is returned when a save carries a version at or below the
// stored one — the caller's snapshot lost the race and must be discarded.
var ErrStaleDraft = errors.New("draft version is stale")

// DraftRepository is the authoritative draft sink
type DraftRepository interface {
	// Upsert writes the draft payload if its version is newer than the
	// stored one; otherwise it returns ErrStaleDraft.
	Upsert(ctx context.Context, draft *model.Draft) error
	GetByKey(ctx context.Context, key string) (*model.Draft, error)
	DeleteByKey(ctx context.Context, key string) error
}

type draftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Upsert(ctx context.Context, draft *model.Draft) error {
	db := GetDB(ctx, r.db)

	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"payload":  draft.Payload,
			"version":  draft.Version,
			"saved_at": draft.SavedAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lt{Column: clause.Column{Table: "drafts", Name: "version"}, Value: draft.Version},
		}},
	}).Create(draft)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleDraft
	}
	return nil
}

func (r *draftRepository) GetByKey(ctx context.Context, key string) (*model.Draft, error) {
	var draft model.Draft
	if err := GetDB(ctx, r.db).First(&draft, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) DeleteByKey(ctx context.Context, key string) error {
	return GetDB(ctx, r.db).Delete(&model.Draft{}, "key = ?", key).Error
}
