package sepay

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Transfer directions reported by SePay.
const (
	TransferIn  = "in"
	TransferOut = "out"
)

// WebhookEvent is the typed view of a SePay transfer notification.
type WebhookEvent struct {
	ID              int64
	Gateway         string
	TransactionDate string
	AccountNumber   string
	Code            string
	Content         string
	TransferType    string
	TransferAmount  int64
	Accumulated     int64
	SubAccount      string
	ReferenceCode   string
	Description     string
}

// DecodePayload decodes raw into the generic payload used for signature checks.
// Numbers stay as json.Number so they are signed exactly as the processor sent them.
// Only a body that is not a JSON object is an error.
func DecodePayload(raw []byte) (Payload, error) {
	var payload Payload
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if payload == nil {
		return nil, errors.New("decode webhook payload: not a JSON object")
	}
	return payload, nil
}

// EventFromPayload derives the typed event from a decoded payload. Fields with an
// unexpected type are left at their zero value; an amount that is not a whole number
// becomes 0 and is caught later as a mismatch.
func EventFromPayload(payload Payload) *WebhookEvent {
	event := &WebhookEvent{
		Gateway:         stringField(payload, "gateway"),
		TransactionDate: stringField(payload, "transactionDate"),
		AccountNumber:   stringField(payload, "accountNumber"),
		Code:            stringField(payload, "code"),
		Content:         stringField(payload, "content"),
		TransferType:    stringField(payload, "transferType"),
		SubAccount:      stringField(payload, "subAccount"),
		ReferenceCode:   stringField(payload, "referenceCode"),
		Description:     stringField(payload, "description"),
	}
	event.ID, _ = integerField(payload, "id")
	event.TransferAmount, _ = integerField(payload, "transferAmount")
	event.Accumulated, _ = integerField(payload, "accumulated")
	return event
}

// ParseWebhook decodes raw into both the generic payload and the typed event.
func ParseWebhook(raw []byte) (Payload, *WebhookEvent, error) {
	payload, err := DecodePayload(raw)
	if err != nil {
		return nil, nil, err
	}
	return payload, EventFromPayload(payload), nil
}

// Reference returns the transfer reference, preferring the structured code field and
// falling back to scanning the free-text content and description.
func (e *WebhookEvent) Reference() (string, bool) {
	for _, text := range []string{e.Code, e.Content} {
		if ref, ok := ExtractReference(text); ok {
			return ref, true
		}
	}
	return ExtractReference(e.Description)
}

// Incoming reports whether money arrived in the account.
func (e *WebhookEvent) Incoming() bool {
	return strings.EqualFold(e.TransferType, TransferIn)
}

func stringField(payload Payload, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// integerField accepts whole numbers sent as JSON numbers (including "150000.0") or
// numeric strings.
func integerField(payload Payload, key string) (int64, bool) {
	var text string
	switch v := payload[key].(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
