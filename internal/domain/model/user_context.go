package model

type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleMerchant
}

// UserContextは操作するユーザー。usecaseには必ず引数で渡す。
type UserContext struct {
	UserID string
	Role   Role
}

func (u UserContext) IsMerchant() bool {
	return u.Role == RoleMerchant
}

func (u UserContext) Authenticated() bool {
	return u.UserID != "" && u.Role.Valid()
}
