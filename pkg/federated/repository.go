package federated

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/training"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrRoundNotFound = errors.New("training round not found")
	// ErrRoundConflict means a status transition lost a race or was attempted
	// from the wrong state, e.g. two aggregations for the same round.
	ErrRoundConflict = errors.New("training round is not in the required state")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RoundModel{}, &RoundMetadataModel{})
}

func (r *Repository) CreateRound(ctx context.Context, round *RoundModel) error {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	if round.CreatedAt.IsZero() {
		round.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *Repository) GetRound(ctx context.Context, roundID uuid.UUID) (*RoundModel, error) {
	var round RoundModel
	result := r.db.WithContext(ctx).First(&round, "id = ?", roundID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRoundNotFound
	}
	return &round, result.Error
}

func (r *Repository) LatestRoundNumber(ctx context.Context) (int, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&RoundModel{}).
		Select("COALESCE(MAX(round_number), 0)").
		Scan(&max).Error
	return int(max), err
}

func (r *Repository) RecentRounds(ctx context.Context, limit int) ([]RoundModel, error) {
	if limit <= 0 {
		limit = 10
	}
	var rounds []RoundModel
	err := r.db.WithContext(ctx).
		Order("round_number desc").
		Limit(limit).
		Find(&rounds).Error
	return rounds, err
}

// TransitionStatus applies updates only if the round is currently in the
// expected state. A zero rows-affected result means another caller won the
// transition, reported as ErrRoundConflict so no two aggregations ever both
// complete the same round.
func (r *Repository) TransitionStatus(ctx context.Context, roundID uuid.UUID, from, to string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).
		Model(&RoundModel{}).
		Where("id = ? AND status = ?", roundID, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetRound(ctx, roundID); err != nil {
			return err
		}
		return ErrRoundConflict
	}
	return nil
}

// InsertRoundMetadata implements training.MetadataStore.
func (r *Repository) InsertRoundMetadata(ctx context.Context, meta training.RoundMetadata) error {
	weights, err := json.Marshal(meta.Weights)
	if err != nil {
		return err
	}
	row := RoundMetadataModel{
		ID:                 uuid.New(),
		TenantID:           meta.TenantID,
		RoundID:            meta.RoundID,
		LocalWeights:       datatypes.JSON(weights),
		TrainingSamples:    meta.TrainingSamples,
		ValidationSamples:  meta.ValidationSamples,
		TrainingAccuracy:   meta.TrainingAccuracy,
		ValidationAccuracy: meta.ValidationAccuracy,
		Loss:               meta.Loss,
		EpochsCompleted:    meta.EpochsCompleted,
		TrainingDurationMs: meta.Duration.Milliseconds(),
		CreatedAt:          time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) MetadataForRound(ctx context.Context, roundID uuid.UUID) ([]RoundMetadataModel, error) {
	var rows []RoundMetadataModel
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}
