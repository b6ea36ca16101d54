package cart

import (
	"errors"

	"canteen/internal/domain/model"
	"canteen/internal/domain/money"
)

var (
	// 売り切れ・販売停止
	ErrNotPurchasable  = errors.New("item is not purchasable")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrTotalOverflow   = errors.New("cart total is out of range")
)

// Line は追加時点の料理スナップショット＋数量。
type Line struct {
	FoodItemID    string       `json:"id"`
	Name          string       `json:"name"`
	Price         money.Amount `json:"price"`
	Image         string       `json:"image"`
	Specification string       `json:"specification,omitempty"`
	Quantity      int64        `json:"quantity"`
}

func (l Line) Subtotal() (money.Amount, error) {
	return l.Price.Mul(l.Quantity)
}

// Cart は端末ローカルのカート。持ち主は1人なので排他しない。
// 在庫の再確認はしない（注文作成時にサーバ側で在庫を確保する）。
type Cart struct {
	lines map[string]*Line
	order []string
}

func New() *Cart {
	return &Cart{lines: map[string]*Line{}}
}

// AddItem は1個追加する。
func (c *Cart) AddItem(item model.FoodItem) error {
	return c.AddItemQuantity(item, 1)
}

// AddItemQuantity は既存行なら加算、無ければ末尾に追加する。
func (c *Cart) AddItemQuantity(item model.FoodItem, qty int64) error {
	if qty <= 0 || qty > model.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if !item.Purchasable() {
		return ErrNotPurchasable
	}
	c.init()

	if l, ok := c.lines[item.ID]; ok {
		if l.Quantity+qty > model.MaxLineQuantity {
			return ErrInvalidQuantity
		}
		return c.setQuantity(l, l.Quantity+qty)
	}
	l := &Line{
		FoodItemID:    item.ID,
		Name:          item.Name,
		Price:         item.Price,
		Image:         item.Image,
		Specification: item.Specification,
		Quantity:      qty,
	}
	c.lines[item.ID] = l
	if _, err := c.sum(); err != nil {
		delete(c.lines, item.ID)
		return ErrTotalOverflow
	}
	c.order = append(c.order, item.ID)
	return nil
}

// UpdateQuantity は数量を上書きする。0以下なら行を消す。
func (c *Cart) UpdateQuantity(foodItemID string, qty int64) error {
	l, ok := c.lines[foodItemID]
	if !ok {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.RemoveItem(foodItemID)
		return nil
	}
	if qty > model.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	return c.setQuantity(l, qty)
}

// 合計が溢れるなら元に戻す
func (c *Cart) setQuantity(l *Line, qty int64) error {
	prev := l.Quantity
	l.Quantity = qty
	if _, err := c.sum(); err != nil {
		l.Quantity = prev
		return ErrTotalOverflow
	}
	return nil
}

func (c *Cart) RemoveItem(foodItemID string) {
	if _, ok := c.lines[foodItemID]; !ok {
		return
	}
	delete(c.lines, foodItemID)
	for i, id := range c.order {
		if id == foodItemID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Clear() {
	c.lines = map[string]*Line{}
	c.order = nil
}

// Lines は追加順のコピー
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.order)
}

func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

func (c *Cart) TotalQuantity() int64 {
	var n int64
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice は分単位の整数で合計する。
// 追加・変更のたびに溢れないことを確かめているので、ここでは失敗しない。
func (c *Cart) TotalPrice() money.Amount {
	total, _ := c.sum()
	return total
}

func (c *Cart) sum() (money.Amount, error) {
	var total money.Amount
	for _, l := range c.lines {
		sub, err := l.Subtotal()
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// OrderLines は注文作成に渡す明細
func (c *Cart) OrderLines() []model.OrderLine {
	out := make([]model.OrderLine, 0, len(c.order))
	for _, l := range c.Lines() {
		out = append(out, model.OrderLine{
			ID:       l.FoodItemID,
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
			Image:    l.Image,
		})
	}
	return out
}

func (c *Cart) init() {
	if c.lines == nil {
		c.lines = map[string]*Line{}
	}
}
