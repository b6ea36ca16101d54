package model

import "time"

// 注文の作成、ステータス更新、決済結果など。
type AuditAction string

const (
	//注文を作成した操作。
	AuditActionOrderCreated AuditAction = "ORDER_CREATED"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//決済が成功した。
	AuditActionPaymentSucceeded AuditAction = "PAYMENT_SUCCEEDED"
	//決済が拒否された（注文自体は変えない）
	AuditActionPaymentDeclined AuditAction = "PAYMENT_DECLINED"
)

// 何に対する操作か
type AuditResourceType string

const (
	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ（注文履歴）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID string `gorm:"type:varchar(64);not null;index" json:"actorUserId"`
	ActorRole   Role   `gorm:"type:varchar(20);not null" json:"actorRole"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`
	ResourceID   string            `gorm:"type:varchar(64);not null;index" json:"resourceId"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before"`
	AfterJSON  string `gorm:"type:text" json:"after"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
