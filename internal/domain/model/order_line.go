package model

import "canteen/internal/domain/money"

// 1明細あたりの数量上限
const MaxLineQuantity = 999

// 注文明細。注文確定時点のスナップショットで、以後カタログが変わっても変えない。
type OrderLine struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Price    money.Amount `json:"price"`
	Quantity int64        `json:"quantity"`
	Image    string       `json:"image,omitempty"`
}

func (l OrderLine) Subtotal() (money.Amount, error) {
	return l.Price.Mul(l.Quantity)
}

// 明細の合計（整数計算なので誤差なし）。溢れたらmoney.ErrOverflow
func SumLines(lines []OrderLine) (money.Amount, error) {
	var total money.Amount
	for _, l := range lines {
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
