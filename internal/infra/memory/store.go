// Package memory is the in-process storage backend. It satisfies the same
// repository interfaces as the GORM backend and gives WithinTx real rollback
// by running each transaction against a private copy of the data.
package memory

import (
	"context"
	"sync"
	"time"

	"canteen/internal/domain/model"
	infraRepo "canteen/internal/infra/repository"
	repo "canteen/internal/repository"
)

type dataset struct {
	foodItems map[string]model.FoodItem
	addresses map[string]model.Address
	orders    map[string]model.Order
	auditLogs []model.AuditLog
	auditSeq  int64
}

func newDataset() *dataset {
	return &dataset{
		foodItems: map[string]model.FoodItem{},
		addresses: map[string]model.Address{},
		orders:    map[string]model.Order{},
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		foodItems: make(map[string]model.FoodItem, len(d.foodItems)),
		addresses: make(map[string]model.Address, len(d.addresses)),
		orders:    make(map[string]model.Order, len(d.orders)),
		auditLogs: make([]model.AuditLog, len(d.auditLogs)),
		auditSeq:  d.auditSeq,
	}
	for k, v := range d.foodItems {
		c.foodItems[k] = v
	}
	for k, v := range d.addresses {
		c.addresses[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v.Clone()
	}
	copy(c.auditLogs, d.auditLogs)
	return c
}

// Store is safe for concurrent use. Transactions are serialized.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Seed loads the sample catalog and address.
func (s *Store) Seed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range infraRepo.SeedFoodItems(now) {
		if _, ok := s.data.foodItems[f.ID]; !ok {
			s.data.foodItems[f.ID] = f
		}
	}
	for _, a := range infraRepo.SeedAddresses() {
		if _, ok := s.data.addresses[a.ID]; !ok {
			s.data.addresses[a.ID] = a
		}
	}
}

// WithinTx runs fn on a copy and publishes the copy only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&repos{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) read(fn func(r *repos) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&repos{d: s.data})
}

func (s *Store) write(ctx context.Context, fn func(r *repos) error) error {
	return s.WithinTx(ctx, func(r repo.TxRepos) error {
		return fn(r.(*repos))
	})
}

// トランザクション外から使うrepo
func (s *Store) Orders() repo.OrderRepository        { return storeOrders{s} }
func (s *Store) FoodItems() repo.FoodItemRepository  { return storeFoodItems{s} }
func (s *Store) Inventory() repo.InventoryRepository { return storeInventory{s} }
func (s *Store) Addresses() repo.AddressRepository   { return storeAddresses{s} }
func (s *Store) AuditLogs() repo.AuditLogRepository  { return storeAuditLogs{s} }

type storeOrders struct{ s *Store }

func (o storeOrders) FindByID(ctx context.Context, id string) (out model.Order, err error) {
	err = o.s.read(func(r *repos) error {
		out, err = r.Orders().FindByID(ctx, id)
		return err
	})
	return out, err
}

func (o storeOrders) List(ctx context.Context, f repo.OrderListFilter) (out []model.Order, total int64, err error) {
	err = o.s.read(func(r *repos) error {
		out, total, err = r.Orders().List(ctx, f)
		return err
	})
	return out, total, err
}

func (o storeOrders) Create(ctx context.Context, order model.Order) error {
	return o.s.write(ctx, func(r *repos) error { return r.Orders().Create(ctx, order) })
}

func (o storeOrders) Update(ctx context.Context, order model.Order, expectedVersion int64) error {
	return o.s.write(ctx, func(r *repos) error { return r.Orders().Update(ctx, order, expectedVersion) })
}

func (o storeOrders) FindByIdempotencyKey(ctx context.Context, userID, key string) (out model.Order, found bool, err error) {
	err = o.s.read(func(r *repos) error {
		out, found, err = r.Orders().FindByIdempotencyKey(ctx, userID, key)
		return err
	})
	return out, found, err
}

type storeFoodItems struct{ s *Store }

func (f storeFoodItems) List(ctx context.Context, q repo.FoodItemListQuery) (out []model.FoodItem, err error) {
	err = f.s.read(func(r *repos) error {
		out, err = r.FoodItems().List(ctx, q)
		return err
	})
	return out, err
}

func (f storeFoodItems) FindByID(ctx context.Context, id string) (out model.FoodItem, err error) {
	err = f.s.read(func(r *repos) error {
		out, err = r.FoodItems().FindByID(ctx, id)
		return err
	})
	return out, err
}

func (f storeFoodItems) Create(ctx context.Context, item model.FoodItem) (out model.FoodItem, err error) {
	err = f.s.write(ctx, func(r *repos) error {
		out, err = r.FoodItems().Create(ctx, item)
		return err
	})
	return out, err
}

type storeInventory struct{ s *Store }

func (i storeInventory) DecreaseStockIfEnough(ctx context.Context, id string, qty int64) (ok bool, err error) {
	err = i.s.write(ctx, func(r *repos) error {
		ok, err = r.Inventory().DecreaseStockIfEnough(ctx, id, qty)
		return err
	})
	return ok, err
}

func (i storeInventory) IncreaseStock(ctx context.Context, id string, qty int64) error {
	return i.s.write(ctx, func(r *repos) error { return r.Inventory().IncreaseStock(ctx, id, qty) })
}

type storeAddresses struct{ s *Store }

func (a storeAddresses) Create(ctx context.Context, address model.Address) (out model.Address, err error) {
	err = a.s.write(ctx, func(r *repos) error {
		out, err = r.Addresses().Create(ctx, address)
		return err
	})
	return out, err
}

func (a storeAddresses) ListByUserID(ctx context.Context, userID string) (out []model.Address, err error) {
	err = a.s.read(func(r *repos) error {
		out, err = r.Addresses().ListByUserID(ctx, userID)
		return err
	})
	return out, err
}

func (a storeAddresses) FindByID(ctx context.Context, id string) (out model.Address, err error) {
	err = a.s.read(func(r *repos) error {
		out, err = r.Addresses().FindByID(ctx, id)
		return err
	})
	return out, err
}

type storeAuditLogs struct{ s *Store }

func (l storeAuditLogs) Create(ctx context.Context, log model.AuditLog) error {
	return l.s.write(ctx, func(r *repos) error { return r.AuditLogs().Create(ctx, log) })
}

func (l storeAuditLogs) ListByOrder(ctx context.Context, q repo.OrderHistoryQuery) (out []model.AuditLog, err error) {
	err = l.s.read(func(r *repos) error {
		out, err = r.AuditLogs().ListByOrder(ctx, q)
		return err
	})
	return out, err
}
