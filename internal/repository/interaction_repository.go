package repository

import (
	"context"
	"errors"
	"fmt"
	"solveit_backend/internal/model"
	"solveit_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// InteractionFilter 列表查询条件；CreatedBefore 为开区间上界
type InteractionFilter struct {
	UserEmail     string
	CompanyKey    string
	Status        model.InteractionStatus
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
}

type InteractionRepository struct {
	DB *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{DB: db}
}

// Create 单行插入，不开启显式事务
func (r *InteractionRepository) Create(ctx context.Context, interaction *model.ServiceInteraction) error {
	if err := r.DB.WithContext(ctx).Create(interaction).Error; err != nil {
		return fmt.Errorf("%w: create interaction: %v", util.ErrStore, err)
	}
	return nil
}

func (r *InteractionRepository) FindByID(ctx context.Context, id uint) (*model.ServiceInteraction, error) {
	var interaction model.ServiceInteraction
	err := r.DB.WithContext(ctx).First(&interaction, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: interaction %d", util.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find interaction: %v", util.ErrStore, err)
	}
	return &interaction, nil
}

func (r *InteractionRepository) List(ctx context.Context, filter InteractionFilter) ([]model.ServiceInteraction, error) {
	query := r.DB.WithContext(ctx).Model(&model.ServiceInteraction{})

	if filter.UserEmail != "" {
		query = query.Where("user_email = ?", filter.UserEmail)
	}
	if filter.CompanyKey != "" {
		query = query.Where("business_phone_number = ?", filter.CompanyKey)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	var interactions []model.ServiceInteraction
	if err := query.Order("created_at DESC").Order("id DESC").Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("%w: list interactions: %v", util.ErrStore, err)
	}
	return interactions, nil
}

// Complete 条件更新 pending -> completed，已完成的记录不会被覆盖
func (r *InteractionRepository) Complete(ctx context.Context, id uint, response string, completedAt time.Time) (*model.ServiceInteraction, error) {
	result := r.DB.WithContext(ctx).Model(&model.ServiceInteraction{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"response_content": response,
			"status":           model.StatusCompleted,
			"completed_at":     completedAt,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("%w: complete interaction: %v", util.ErrStore, result.Error)
	}

	if result.RowsAffected == 0 {
		existing, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Status == model.StatusCompleted {
			return nil, fmt.Errorf("%w: interaction %d", util.ErrAlreadyCompleted, id)
		}
		return nil, fmt.Errorf("%w: interaction %d was not updated", util.ErrStore, id)
	}

	return r.FindByID(ctx, id)
}
