package repository

import (
	"context"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *auditLogGormRepository) ListByOrder(ctx context.Context, q repo.OrderHistoryQuery) ([]model.AuditLog, error) {
	tx := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", model.AuditResourceOrder, q.OrderID)
	if len(q.Actions) > 0 {
		tx = tx.Where("action IN ?", q.Actions)
	}
	if q.AfterID > 0 {
		tx = tx.Where("id > ?", q.AfterID)
	}

	logs := []model.AuditLog{}
	if err := tx.Order("id ASC").Limit(q.EffectiveLimit()).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
