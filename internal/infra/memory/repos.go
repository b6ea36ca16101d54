package memory

import (
	"context"
	"sort"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

type repos struct {
	d *dataset
}

func (r *repos) Orders() repo.OrderRepository        { return orderRepo{r.d} }
func (r *repos) FoodItems() repo.FoodItemRepository  { return foodItemRepo{r.d} }
func (r *repos) Inventory() repo.InventoryRepository { return inventoryRepo{r.d} }
func (r *repos) Addresses() repo.AddressRepository   { return addressRepo{r.d} }
func (r *repos) AuditLogs() repo.AuditLogRepository  { return auditLogRepo{r.d} }

type orderRepo struct{ d *dataset }

func (r orderRepo) FindByID(_ context.Context, id string) (model.Order, error) {
	o, ok := r.d.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o.Clone(), nil
}

func (r orderRepo) List(_ context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	matched := make([]model.Order, 0, len(r.d.orders))
	for _, o := range r.d.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		matched = append(matched, o)
	}

	//新しい順（同時刻ならID降順）
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []model.Order{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]model.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, o.Clone())
	}
	return out, total, nil
}

func (r orderRepo) Create(_ context.Context, order model.Order) error {
	if _, ok := r.d.orders[order.ID]; ok {
		return repo.ErrConflict
	}
	if order.IdempotencyKey != nil {
		for _, o := range r.d.orders {
			if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return repo.ErrConflict
			}
		}
	}
	r.d.orders[order.ID] = order.Clone()
	return nil
}

func (r orderRepo) Update(_ context.Context, order model.Order, expectedVersion int64) error {
	cur, ok := r.d.orders[order.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return repo.ErrConflict
	}

	//GORM実装と同じく可変フィールドだけ書き換える
	cur.Status = order.Status
	cur.PaymentStatus = order.PaymentStatus
	cur.PaymentMethod = order.PaymentMethod
	cur.Version = order.Version
	cur.UpdatedAt = order.UpdatedAt
	r.d.orders[order.ID] = cur
	return nil
}

func (r orderRepo) FindByIdempotencyKey(_ context.Context, userID, key string) (model.Order, bool, error) {
	for _, o := range r.d.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o.Clone(), true, nil
		}
	}
	return model.Order{}, false, nil
}

type foodItemRepo struct{ d *dataset }

func (r foodItemRepo) List(_ context.Context, q repo.FoodItemListQuery) ([]model.FoodItem, error) {
	out := make([]model.FoodItem, 0, len(r.d.foodItems))
	for _, f := range r.d.foodItems {
		if q.Category != "" && string(f.Category) != q.Category {
			continue
		}
		if q.AvailableOnly && !f.Purchasable() {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r foodItemRepo) FindByID(_ context.Context, id string) (model.FoodItem, error) {
	f, ok := r.d.foodItems[id]
	if !ok {
		return model.FoodItem{}, repo.ErrNotFound
	}
	return f, nil
}

func (r foodItemRepo) Create(_ context.Context, item model.FoodItem) (model.FoodItem, error) {
	if _, ok := r.d.foodItems[item.ID]; ok {
		return model.FoodItem{}, repo.ErrConflict
	}
	r.d.foodItems[item.ID] = item
	return item, nil
}

type inventoryRepo struct{ d *dataset }

func (r inventoryRepo) DecreaseStockIfEnough(_ context.Context, id string, qty int64) (bool, error) {
	f, ok := r.d.foodItems[id]
	if !ok || f.Stock < qty {
		return false, nil
	}
	f.Stock -= qty
	r.d.foodItems[id] = f
	return true, nil
}

func (r inventoryRepo) IncreaseStock(_ context.Context, id string, qty int64) error {
	f, ok := r.d.foodItems[id]
	if !ok {
		return repo.ErrNotFound
	}
	f.Stock += qty
	r.d.foodItems[id] = f
	return nil
}

type addressRepo struct{ d *dataset }

func (r addressRepo) Create(_ context.Context, a model.Address) (model.Address, error) {
	if _, ok := r.d.addresses[a.ID]; ok {
		return model.Address{}, repo.ErrConflict
	}
	r.d.addresses[a.ID] = a
	return a, nil
}

func (r addressRepo) ListByUserID(_ context.Context, userID string) ([]model.Address, error) {
	out := []model.Address{}
	for _, a := range r.d.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	//デフォルトが先頭
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r addressRepo) FindByID(_ context.Context, id string) (model.Address, error) {
	a, ok := r.d.addresses[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

type auditLogRepo struct{ d *dataset }

func (r auditLogRepo) Create(_ context.Context, log model.AuditLog) error {
	r.d.auditSeq++
	log.ID = r.d.auditSeq
	r.d.auditLogs = append(r.d.auditLogs, log)
	return nil
}

func (r auditLogRepo) ListByOrder(_ context.Context, q repo.OrderHistoryQuery) ([]model.AuditLog, error) {
	want := map[model.AuditAction]bool{}
	for _, a := range q.Actions {
		want[a] = true
	}

	out := []model.AuditLog{}
	for _, l := range r.d.auditLogs {
		if l.ResourceType != model.AuditResourceOrder || l.ResourceID != q.OrderID || l.ID <= q.AfterID {
			continue
		}
		if len(want) > 0 && !want[l.Action] {
			continue
		}
		out = append(out, l)
		if len(out) == q.EffectiveLimit() {
			break
		}
	}
	return out, nil
}
