package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	payloadFormatJSON      = "json"
	payloadFormatEncrypted = "json+encrypted"
)

type transactionRecord struct {
	bun.BaseModel `bun:"table:bankid_transactions,alias:bt"`

	ID            string    `bun:"id,pk"`
	OrderRef      string    `bun:"order_ref,notnull"`
	Operation     string    `bun:"operation,notnull"`
	ActionName    string    `bun:"action_name,notnull"`
	Payload       []byte    `bun:"payload,notnull"`
	PayloadFormat string    `bun:"payload_format,notnull"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
