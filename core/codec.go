package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r TransportResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// MapProviderError converts a non-2xx response into a *ProviderError. An
// unparseable body yields ProviderUnknownError with error code
// "unknownError" and no details.
func MapProviderError(res TransportResponse) error {
	body := append([]byte(nil), res.Body...)
	var payload map[string]any
	if err := json.Unmarshal(res.Body, &payload); err != nil || payload == nil {
		return &ProviderError{
			Kind:       ProviderUnknownError,
			StatusCode: res.StatusCode,
			ErrorCode:  string(ProviderUnknownError),
			Body:       body,
		}
	}
	errorCode, _ := payload["errorCode"].(string)
	kind := ClassifyProviderError(res.StatusCode, errorCode)
	if strings.TrimSpace(errorCode) == "" {
		errorCode = string(ProviderUnknownError)
	}
	return &ProviderError{
		Kind:       kind,
		StatusCode: res.StatusCode,
		ErrorCode:  errorCode,
		Details:    payload,
		Body:       body,
	}
}

type orderPayload struct {
	OrderRef       *string `json:"orderRef"`
	AutoStartToken *string `json:"autoStartToken"`
	QRStartToken   *string `json:"qrStartToken"`
	QRStartSecret  *string `json:"qrStartSecret"`
}

// DecodeOrder decodes an auth or sign response. StartTime is stamped with
// now, the local receipt time, since the provider does not report one.
func DecodeOrder(res TransportResponse, now time.Time) (OrderResponse, error) {
	if !res.Success() {
		return OrderResponse{}, MapProviderError(res)
	}
	var payload orderPayload
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return OrderResponse{}, &DecodeError{Field: "order", Reason: "malformed body", Err: err}
	}
	for field, value := range map[string]*string{
		"orderRef":       payload.OrderRef,
		"autoStartToken": payload.AutoStartToken,
		"qrStartToken":   payload.QRStartToken,
		"qrStartSecret":  payload.QRStartSecret,
	} {
		if value == nil {
			return OrderResponse{}, &DecodeError{Field: field, Reason: "missing"}
		}
	}
	if now.IsZero() {
		now = time.Now()
	}
	return OrderResponse{
		OrderRef:       *payload.OrderRef,
		AutoStartToken: *payload.AutoStartToken,
		QRStartToken:   *payload.QRStartToken,
		QRStartSecret:  *payload.QRStartSecret,
		StartTime:      now.UTC(),
	}, nil
}

type collectPayload struct {
	OrderRef       string                 `json:"orderRef"`
	Status         string                 `json:"status"`
	HintCode       string                 `json:"hintCode"`
	CompletionData *completionDataPayload `json:"completionData"`
}

type completionDataPayload struct {
	User *struct {
		PersonalNumber *string `json:"personalNumber"`
		Name           string  `json:"name"`
		GivenName      string  `json:"givenName"`
		Surname        string  `json:"surname"`
	} `json:"user"`
	Device *struct {
		IPAddress *string `json:"ipAddress"`
		UHI       string  `json:"uhi"`
	} `json:"device"`
	BankIDIssueDate string `json:"bankIdIssueDate"`
	StepUp          *struct {
		MRTD bool `json:"mrtd"`
	} `json:"stepUp"`
	Signature    *string `json:"signature"`
	OCSPResponse *string `json:"ocspResponse"`
}

func DecodeCollect(res TransportResponse) (CollectResponse, error) {
	if !res.Success() {
		return nil, MapProviderError(res)
	}
	var payload collectPayload
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return nil, &DecodeError{Field: "collect", Reason: "malformed body", Err: err}
	}

	switch CollectStatus(payload.Status) {
	case CollectStatusPending:
		return PendingCollect{OrderRef: payload.OrderRef, HintCode: ParsePendingHintCode(payload.HintCode)}, nil
	case CollectStatusFailed:
		return FailedCollect{OrderRef: payload.OrderRef, HintCode: ParseFailedHintCode(payload.HintCode)}, nil
	case CollectStatusComplete:
		data, err := decodeCompletionData(payload.CompletionData)
		if err != nil {
			return nil, err
		}
		return CompleteCollect{OrderRef: payload.OrderRef, CompletionData: data}, nil
	default:
		return nil, &DecodeError{Field: "status", Reason: fmt.Sprintf("unexpected collect status %q", payload.Status)}
	}
}

func decodeCompletionData(payload *completionDataPayload) (CompletionData, error) {
	switch {
	case payload == nil:
		return CompletionData{}, &DecodeError{Field: "completionData", Reason: "missing"}
	case payload.User == nil || payload.User.PersonalNumber == nil:
		return CompletionData{}, &DecodeError{Field: "completionData.user", Reason: "missing"}
	case payload.Device == nil || payload.Device.IPAddress == nil:
		return CompletionData{}, &DecodeError{Field: "completionData.device", Reason: "missing"}
	case payload.Signature == nil:
		return CompletionData{}, &DecodeError{Field: "completionData.signature", Reason: "missing"}
	case payload.OCSPResponse == nil:
		return CompletionData{}, &DecodeError{Field: "completionData.ocspResponse", Reason: "missing"}
	}

	data := CompletionData{
		User: User{
			PersonalNumber: *payload.User.PersonalNumber,
			Name:           payload.User.Name,
			GivenName:      payload.User.GivenName,
			Surname:        payload.User.Surname,
		},
		Device: Device{
			IPAddress: *payload.Device.IPAddress,
			UHI:       payload.Device.UHI,
		},
		BankIDIssueDate: payload.BankIDIssueDate,
		Signature:       *payload.Signature,
		OCSPResponse:    *payload.OCSPResponse,
	}
	if payload.StepUp != nil {
		data.StepUp = &StepUp{MRTD: payload.StepUp.MRTD}
	}
	return data, nil
}

// TransactionRecord is the serialized form shared by every store that
// persists transactions as documents.
type TransactionRecord struct {
	OrderRef       string         `json:"order_ref"`
	AutoStartToken string         `json:"auto_start_token"`
	QRStartToken   string         `json:"qr_start_token"`
	QRStartSecret  string         `json:"qr_start_secret"`
	StartTime      string         `json:"start_time"`
	Operation      Operation      `json:"operation"`
	ActionName     string         `json:"action_name"`
	Context        map[string]any `json:"context"`
}

func NewTransactionRecord(txn Transaction) TransactionRecord {
	return TransactionRecord{
		OrderRef:       txn.OrderResponse.OrderRef,
		AutoStartToken: txn.OrderResponse.AutoStartToken,
		QRStartToken:   txn.OrderResponse.QRStartToken,
		QRStartSecret:  txn.OrderResponse.QRStartSecret,
		StartTime:      txn.OrderResponse.StartTime.UTC().Format(time.RFC3339Nano),
		Operation:      txn.Operation,
		ActionName:     txn.ActionName,
		Context:        copyAnyMap(txn.Context),
	}
}

func (r TransactionRecord) Transaction() (Transaction, error) {
	startTime, err := time.Parse(time.RFC3339Nano, r.StartTime)
	if err != nil {
		return Transaction{}, fmt.Errorf("core: parse transaction start time: %w", err)
	}
	if !r.Operation.Valid() {
		return Transaction{}, fmt.Errorf("core: unsupported transaction operation %q", r.Operation)
	}
	return Transaction{
		OrderResponse: OrderResponse{
			OrderRef:       r.OrderRef,
			AutoStartToken: r.AutoStartToken,
			QRStartToken:   r.QRStartToken,
			QRStartSecret:  r.QRStartSecret,
			StartTime:      startTime.UTC(),
		},
		Operation:  r.Operation,
		ActionName: r.ActionName,
		Context:    copyAnyMap(r.Context),
	}, nil
}

func MarshalTransaction(txn Transaction) ([]byte, error) {
	payload, err := json.Marshal(NewTransactionRecord(txn))
	if err != nil {
		return nil, fmt.Errorf("core: marshal transaction: %w", err)
	}
	return payload, nil
}

func UnmarshalTransaction(payload []byte) (Transaction, error) {
	var record TransactionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return Transaction{}, fmt.Errorf("core: unmarshal transaction: %w", err)
	}
	return record.Transaction()
}

func cloneTransaction(txn Transaction) Transaction {
	cloned := txn
	cloned.Context = copyAnyMap(txn.Context)
	return cloned
}

func copyAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
