package command

import (
	"strings"

	"github.com/goliatone/go-bankid/core"
)

const (
	TypeInitAuth = "bankid.command.auth.init"
	TypeInitSign = "bankid.command.sign.init"
	TypeCheck    = "bankid.command.transaction.check"
	TypeCancel   = "bankid.command.transaction.cancel"
)

type InitAuthMessage struct {
	ActionName string
	Request    core.OrderRequest
}

func (InitAuthMessage) Type() string { return TypeInitAuth }

func (m InitAuthMessage) Validate() error {
	return validateOrder(m.ActionName, m.Request)
}

type InitSignMessage struct {
	ActionName string
	Request    core.OrderRequest
}

func (InitSignMessage) Type() string { return TypeInitSign }

func (m InitSignMessage) Validate() error {
	return validateOrder(m.ActionName, m.Request)
}

// CheckMessage polls a transaction once. Request is handed to the action's
// Finalize when the order completes.
type CheckMessage struct {
	TransactionID core.TransactionID
	Request       any
}

func (CheckMessage) Type() string { return TypeCheck }

func (m CheckMessage) Validate() error {
	return validateTransactionID(m.TransactionID)
}

type CancelMessage struct {
	TransactionID core.TransactionID
}

func (CancelMessage) Type() string { return TypeCancel }

func (m CancelMessage) Validate() error {
	return validateTransactionID(m.TransactionID)
}

func validateOrder(actionName string, req core.OrderRequest) error {
	if strings.TrimSpace(actionName) == "" {
		return commandValidationError("action_name", "action name is required")
	}
	if strings.TrimSpace(req.EndUserIP) == "" {
		return commandValidationError("end_user_ip", "end user ip is required")
	}
	return nil
}

func validateTransactionID(id core.TransactionID) error {
	if strings.TrimSpace(string(id)) == "" {
		return commandValidationError("transaction_id", "transaction id is required")
	}
	return nil
}
