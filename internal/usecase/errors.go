package usecase

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	//入力不正（空カート、enum不正、合計不一致など）
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")

	//状態遷移表に違反
	ErrIllegalTransition = errors.New("illegal transition")

	//模擬決済の失敗。同じ注文で再試行してよい
	ErrPaymentDeclined = errors.New("payment declined")

	//同時更新でバージョンがずれた
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)

// TransitionError describes a rejected patch. errors.Is(err, ErrIllegalTransition) holds.
type TransitionError struct {
	Field  string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition: %s %s -> %s", e.Field, e.From, e.To)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// DBなどの失敗はログに残して中身は外に出さない
func internal(log *zap.Logger, op string, err error) error {
	log.Error("internal failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s", ErrInternal, op)
}
