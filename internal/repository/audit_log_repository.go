package repository

import (
	"context"

	"canteen/internal/domain/model"
)

// 注文履歴の読み出し条件。
// AfterID より後の行を古い順に返す（続きを読むときは最後のIDを渡す）。
type OrderHistoryQuery struct {
	OrderID string
	Actions []model.AuditAction //空なら全部
	AfterID int64
	Limit   int
}

// 0や上限超えは50
func (q OrderHistoryQuery) EffectiveLimit() int {
	if q.Limit <= 0 || q.Limit > 200 {
		return 50
	}
	return q.Limit
}

type AuditLogRepository interface {
	//1件追記（更新・削除はしない）
	Create(ctx context.Context, log model.AuditLog) error

	ListByOrder(ctx context.Context, q OrderHistoryQuery) ([]model.AuditLog, error)
}
