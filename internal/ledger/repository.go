package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementRepository interface {
	Create(ctx context.Context, tx *gorm.DB, movement *CashMovement) error
	List(ctx context.Context, category string, limit int) ([]CashMovement, error)
}

type MovementRepositoryImpl struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepositoryImpl {
	return &MovementRepositoryImpl{db: db}
}

// Create appends one movement inside the caller's transaction so the cash
// book row commits together with the game state it accounts for.
func (r *MovementRepositoryImpl) Create(ctx context.Context, tx *gorm.DB, movement *CashMovement) error {
	if movement.MovementID == "" {
		movement.MovementID = uuid.New().String()
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return fmt.Errorf("failed to create cash movement: %w", err)
	}
	return nil
}

func (r *MovementRepositoryImpl) List(ctx context.Context, category string, limit int) ([]CashMovement, error) {
	var movements []CashMovement
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list cash movements: %w", err)
	}
	return movements, nil
}
