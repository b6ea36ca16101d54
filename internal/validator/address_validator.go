package validator

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"canteen/internal/usecase"
)

var (
	// 必須項目が空
	ErrRequired = errors.New("name, phone and address are required")

	// 電話番号の形式
	ErrInvalidPhone = errors.New("invalid phone")

	// 長すぎる
	ErrTooLong = errors.New("field too long")
)

const (
	maxNameLen    = 255
	maxAddressLen = 500
	maxNoteLen    = 500
)

// 数字・+・-・空白で7〜20文字
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\- ]{5,18}[0-9]$`)

type addressValidator struct{}

// Usecaseは interface を依存注入
func NewAddressValidator() usecase.AddressValidator {
	return addressValidator{}
}

// 住所登録の入力を検証（前後の空白は呼び出し側で落とす）
func (addressValidator) ValidateCreate(req usecase.AddressCreateRequest) error {
	if req.Name == "" || req.Phone == "" || req.Address == "" {
		return ErrRequired
	}
	if !phonePattern.MatchString(req.Phone) {
		return ErrInvalidPhone
	}
	if utf8.RuneCountInString(req.Name) > maxNameLen ||
		utf8.RuneCountInString(req.Address) > maxAddressLen ||
		utf8.RuneCountInString(req.Note) > maxNoteLen {
		return ErrTooLong
	}
	return nil
}
