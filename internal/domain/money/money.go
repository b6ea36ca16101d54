package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// 小数点以下2桁（分）で固定
const scale = 2

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNegative      = errors.New("amount must not be negative")
	ErrPrecision     = errors.New("amount has more than 2 decimal places")
	ErrOverflow      = errors.New("amount overflows")
)

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Amountは金額を最小単位（分）の整数で持つ。
// 計算は整数のみで行い、小数表記にするのは表示のときだけ。
type Amount int64

func FromMinor(v int64) Amount {
	return Amount(v)
}

// Parseは "18.00" / "18" / "18.5" を受け付ける。
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrNegative
	}
	shifted := d.Shift(scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrPrecision
	}
	if shifted.GreaterThan(maxMinor) {
		return 0, ErrInvalidAmount
	}
	return Amount(shifted.IntPart()), nil
}

func (a Amount) Minor() int64 {
	return int64(a)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -scale)
}

// 単価×数量。int64を超えたらErrOverflow
func (a Amount) Mul(qty int64) (Amount, error) {
	if a < 0 || qty < 0 {
		return 0, ErrNegative
	}
	if a != 0 && qty > math.MaxInt64/int64(a) {
		return 0, ErrOverflow
	}
	return a * Amount(qty), nil
}

func (a Amount) Add(b Amount) (Amount, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegative
	}
	if a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(scale)
}

// JSONでは "44.00" のような文字列で返す。
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// 文字列と数値のどちらも受け付ける。
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
