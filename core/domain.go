package core

import (
	"strings"
	"time"
)

type Operation string

const (
	OperationAuth Operation = "auth"
	OperationSign Operation = "sign"
)

func (o Operation) Valid() bool {
	return o == OperationAuth || o == OperationSign
}

// TransactionID is minted by the TransactionStore. The engine never
// generates or parses it.
type TransactionID string

func (id TransactionID) String() string {
	return string(id)
}

type OrderResponse struct {
	OrderRef       string
	AutoStartToken string
	QRStartToken   string
	QRStartSecret  string
	StartTime      time.Time
}

type Transaction struct {
	OrderResponse OrderResponse
	Operation     Operation
	ActionName    string
	Context       map[string]any
}

type OrderRequest struct {
	EndUserIP   string
	Requirement *Requirement
	// Request is handed through to the action untouched, typically the
	// inbound HTTP request of the caller.
	Request any
	Context map[string]any
}

type Order struct {
	TransactionID  TransactionID
	AutoStartToken string
}

type CollectStatus string

const (
	CollectStatusPending  CollectStatus = "pending"
	CollectStatusComplete CollectStatus = "complete"
	CollectStatusFailed   CollectStatus = "failed"
)

type PendingHintCode string

const (
	PendingHintOutstandingTransaction PendingHintCode = "outstandingTransaction"
	PendingHintNoClient               PendingHintCode = "noClient"
	PendingHintStarted                PendingHintCode = "started"
	PendingHintUserMRTD               PendingHintCode = "userMrtd"
	PendingHintUserCallConfirm        PendingHintCode = "userCallConfirm"
	PendingHintUserSign               PendingHintCode = "userSign"
	PendingHintUnknown                PendingHintCode = "unknown"
)

// ParsePendingHintCode never fails; unrecognized values degrade to
// PendingHintUnknown.
func ParsePendingHintCode(value string) PendingHintCode {
	switch code := PendingHintCode(strings.TrimSpace(value)); code {
	case PendingHintOutstandingTransaction,
		PendingHintNoClient,
		PendingHintStarted,
		PendingHintUserMRTD,
		PendingHintUserCallConfirm,
		PendingHintUserSign:
		return code
	default:
		return PendingHintUnknown
	}
}

// ExpectsQRCode reports whether the provider is waiting for the end user to
// scan a QR code rather than for an already launched client.
func (c PendingHintCode) ExpectsQRCode() bool {
	return c == PendingHintOutstandingTransaction || c == PendingHintNoClient
}

type FailedHintCode string

const (
	FailedHintExpiredTransaction FailedHintCode = "expiredTransaction"
	FailedHintCertificateErr     FailedHintCode = "certificateErr"
	FailedHintUserCancel         FailedHintCode = "userCancel"
	FailedHintCancelled          FailedHintCode = "cancelled"
	FailedHintStartFailed        FailedHintCode = "startFailed"
	FailedHintUserDeclinedCall   FailedHintCode = "userDeclinedCall"
	FailedHintUnknown            FailedHintCode = "unknown"
)

func ParseFailedHintCode(value string) FailedHintCode {
	switch code := FailedHintCode(strings.TrimSpace(value)); code {
	case FailedHintExpiredTransaction,
		FailedHintCertificateErr,
		FailedHintUserCancel,
		FailedHintCancelled,
		FailedHintStartFailed,
		FailedHintUserDeclinedCall:
		return code
	default:
		return FailedHintUnknown
	}
}

type User struct {
	PersonalNumber string
	Name           string
	GivenName      string
	Surname        string
}

type Device struct {
	IPAddress string
	// UHI is the optional unique hardware identifier, empty when absent.
	UHI string
}

type StepUp struct {
	MRTD bool
}

type CompletionData struct {
	User            User
	Device          Device
	BankIDIssueDate string
	StepUp          *StepUp
	Signature       string
	OCSPResponse    string
}

// CollectResponse is one of PendingCollect, CompleteCollect or FailedCollect.
type CollectResponse interface {
	Status() CollectStatus
	Ref() string
	isCollectResponse()
}

type PendingCollect struct {
	OrderRef string
	HintCode PendingHintCode
}

func (PendingCollect) Status() CollectStatus { return CollectStatusPending }
func (c PendingCollect) Ref() string        { return c.OrderRef }
func (PendingCollect) isCollectResponse()   {}

type CompleteCollect struct {
	OrderRef       string
	CompletionData CompletionData
}

func (CompleteCollect) Status() CollectStatus { return CollectStatusComplete }
func (c CompleteCollect) Ref() string        { return c.OrderRef }
func (CompleteCollect) isCollectResponse()   {}

type FailedCollect struct {
	OrderRef string
	HintCode FailedHintCode
}

func (FailedCollect) Status() CollectStatus { return CollectStatusFailed }
func (c FailedCollect) Ref() string        { return c.OrderRef }
func (FailedCollect) isCollectResponse()   {}

// IsTerminal reports whether the order can no longer be polled.
func IsTerminal(result CollectResponse) bool {
	switch result.(type) {
	case CompleteCollect, FailedCollect:
		return true
	default:
		return false
	}
}

type CheckResult struct {
	Collect CollectResponse
	// QRCode is set only for pending results whose hint code expects a scan.
	QRCode string
	// FinalizeResult carries the value returned by the action's Finalize.
	FinalizeResult any
}
