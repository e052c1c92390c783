package creator

import (
	"context"
	"time"

	"creator-engine/pkg/errutil"
	"creator-engine/pkg/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB

	creators repository.Repository[Creator]
}

type ServiceParams struct {
	fx.In

	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		creators: repository.ProvideStore[Creator](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, creatorID string) (*Creator, error) {
	record, err := s.creators.FindOne(ctx, &Creator{CreatorID: creatorID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errutil.NotFound("creator not found", nil)
	}
	return record, nil
}

// Update applies a typed partial update. Only the fields enumerated on the
// Update struct can change.
func (s *Service) Update(ctx context.Context, creatorID string, in Update) (*Creator, error) {
	record, err := s.Get(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if in.DisplayName != nil {
		values["display_name"] = *in.DisplayName
	}
	if in.Status != nil {
		values["status"] = *in.Status
	}
	if len(values) == 0 {
		return record, nil
	}
	values["updated_at"] = time.Now()

	if err := s.db.WithContext(ctx).
		Model(&Creator{}).
		Where("creator_id = ?", creatorID).
		Updates(values).Error; err != nil {
		zap.L().Error("failed to update creator", zap.String("creator_id", creatorID), zap.Error(err))
		return nil, err
	}

	return s.Get(ctx, creatorID)
}

// StoreAggregate writes the cached lifetime GMV with an optimistic version
// check. A zero-row update means another run got there first; the caller
// retries with a fresh read.
func (s *Service) StoreAggregate(ctx context.Context, creatorID string, gmv decimal.Decimal, expectedVersion int64) error {
	res := s.db.WithContext(ctx).
		Model(&Creator{}).
		Where("creator_id = ? AND gmv_version = ?", creatorID, expectedVersion).
		Updates(map[string]any{
			"current_gmv": gmv,
			"gmv_version": gorm.Expr("gmv_version + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("creator aggregate version changed", nil)
	}
	return nil
}

func (s *Service) ListActive(ctx context.Context) ([]*Creator, error) {
	return s.creators.Find(ctx, &Creator{Status: StatusActive})
}

// ListActiveIDs feeds the batch recomputation driver.
func (s *Service) ListActiveIDs(ctx context.Context) ([]string, error) {
	records, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.CreatorID)
	}
	return ids, nil
}
