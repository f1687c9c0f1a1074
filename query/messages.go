package query

import (
	"strings"

	"github.com/goliatone/go-bankid/core"
)

const (
	TypeLookupTransaction = "bankid.query.transaction.lookup"
	TypeCurrentQRCode     = "bankid.query.transaction.qr_code"
)

type LookupTransactionMessage struct {
	TransactionID core.TransactionID
}

func (LookupTransactionMessage) Type() string { return TypeLookupTransaction }

func (m LookupTransactionMessage) Validate() error {
	return validateTransactionID(m.TransactionID)
}

type CurrentQRCodeMessage struct {
	TransactionID core.TransactionID
}

func (CurrentQRCodeMessage) Type() string { return TypeCurrentQRCode }

func (m CurrentQRCodeMessage) Validate() error {
	return validateTransactionID(m.TransactionID)
}

func validateTransactionID(id core.TransactionID) error {
	if strings.TrimSpace(string(id)) == "" {
		return queryValidationError("transaction_id", "transaction id is required")
	}
	return nil
}
