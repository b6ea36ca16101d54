package usecase

import (
	"context"
	"fmt"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"go.uber.org/zap"
)

type AddressCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Note    string `json:"note"`
}

// 入力検証は外から差し込む
type AddressValidator interface {
	ValidateCreate(req AddressCreateRequest) error
}

type AddressUsecase struct {
	addresses repo.AddressRepository
	validate  AddressValidator
	ids       IDGenerator
	log       *zap.Logger
}

func NewAddressUsecase(addresses repo.AddressRepository, validate AddressValidator, ids IDGenerator, log *zap.Logger) *AddressUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &AddressUsecase{addresses: addresses, validate: validate, ids: ids, log: log}
}

// List returns the addresses of userID (empty means the caller). Exactly one
// entry is flagged default whenever the list is non-empty.
func (u *AddressUsecase) List(ctx context.Context, uc model.UserContext, userID string) ([]model.Address, error) {
	if !uc.Authenticated() {
		return []model.Address{}, ErrUnauthorized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = uc.UserID
	}
	if userID != uc.UserID && !uc.IsMerchant() {
		return []model.Address{}, ErrForbidden
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Address{}, internal(u.log, "list addresses", err)
	}
	return normalizeDefault(list), nil
}

func (u *AddressUsecase) Create(ctx context.Context, uc model.UserContext, req AddressCreateRequest) (model.Address, error) {
	if !uc.Authenticated() {
		return model.Address{}, ErrUnauthorized
	}

	req = AddressCreateRequest{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Note:    strings.TrimSpace(req.Note),
	}
	if u.validate != nil {
		if err := u.validate.ValidateCreate(req); err != nil {
			return model.Address{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	existing, err := u.addresses.ListByUserID(ctx, uc.UserID)
	if err != nil {
		return model.Address{}, internal(u.log, "list addresses", err)
	}

	//最初の住所はデフォルト
	a := model.Address{
		ID:        u.ids.NewID(),
		UserID:    uc.UserID,
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		Note:      req.Note,
		IsDefault: len(existing) == 0,
	}
	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return model.Address{}, internal(u.log, "create address", err)
	}
	return created, nil
}

// 先頭（デフォルト優先で並んでいる）だけをデフォルトとして返す
func normalizeDefault(list []model.Address) []model.Address {
	out := make([]model.Address, len(list))
	copy(out, list)
	if len(out) == 0 {
		return out
	}

	idx := 0
	for i, a := range out {
		if a.IsDefault {
			idx = i
			break
		}
	}
	for i := range out {
		out[i].IsDefault = i == idx
	}
	return out
}
