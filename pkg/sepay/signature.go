package sepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Payload is a decoded webhook body or an outbound parameter set.
type Payload map[string]any

// Sign canonicalizes payload as sorted key=value pairs joined by "&" and returns the
// base64 HMAC-SHA256 of that string.
func Sign(payload Payload, secret string) string {
	return hmacBase64(sortedPairs(payload), secret)
}

// SignatureScheme turns a payload into the string the processor signed.
// ok is false when the payload does not carry what the scheme needs.
type SignatureScheme interface {
	Name() string
	Canonical(payload Payload) (canonical string, ok bool)
}

// FieldsScheme signs "transactionDate|accountNumber|transferAmount".
type FieldsScheme struct{}

func (FieldsScheme) Name() string { return "fields" }

func (FieldsScheme) Canonical(payload Payload) (string, bool) {
	keys := []string{"transactionDate", "accountNumber", "transferAmount"}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value, ok := payload[key]
		if !ok || value == nil {
			return "", false
		}
		parts = append(parts, stringify(value))
	}
	return strings.Join(parts, "|"), true
}

// SortedScheme is the canonical form produced by Sign.
type SortedScheme struct{}

func (SortedScheme) Name() string { return "sorted" }

func (SortedScheme) Canonical(payload Payload) (string, bool) {
	return sortedPairs(payload), true
}

// JSONScheme signs the JSON serialization of the whole payload (keys sorted).
type JSONScheme struct{}

func (JSONScheme) Name() string { return "json" }

func (JSONScheme) Canonical(payload Payload) (string, bool) {
	raw, err := json.Marshal(map[string]any(payload))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// SchemeByName resolves a configured scheme name.
func SchemeByName(name string) (SignatureScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fields":
		return FieldsScheme{}, nil
	case "sorted":
		return SortedScheme{}, nil
	case "json":
		return JSONScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", name)
	}
}

// Verifier checks webhook signatures against an ordered list of schemes.
// The processor's exact signing contract is not pinned down, so the most specific
// scheme is tried first and the rest act as fallbacks.
type Verifier struct {
	secret  string
	schemes []SignatureScheme
}

func NewVerifier(secret string, schemes ...SignatureScheme) *Verifier {
	if len(schemes) == 0 {
		schemes = []SignatureScheme{FieldsScheme{}, SortedScheme{}, JSONScheme{}}
	}
	return &Verifier{secret: secret, schemes: schemes}
}

// NewVerifierFromNames builds a Verifier from configured scheme names.
func NewVerifierFromNames(secret string, names []string) (*Verifier, error) {
	schemes := make([]SignatureScheme, 0, len(names))
	for _, name := range names {
		scheme, err := SchemeByName(name)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, scheme)
	}
	return NewVerifier(secret, schemes...), nil
}

// Verify reports whether signature matches payload under any configured scheme, and which one.
func (v *Verifier) Verify(payload Payload, signature string) (string, bool) {
	signature = strings.TrimSpace(signature)
	if v.secret == "" || signature == "" {
		return "", false
	}

	for _, scheme := range v.schemes {
		canonical, ok := scheme.Canonical(payload)
		if !ok {
			continue
		}
		if signaturesEqual(hmacBase64(canonical, v.secret), signature) {
			return scheme.Name(), true
		}
	}
	return "", false
}

// VerifyWebhookSignature verifies with the default scheme order.
func VerifyWebhookSignature(payload Payload, signature, secret string) bool {
	_, ok := NewVerifier(secret).Verify(payload, signature)
	return ok
}

// hmac.Equal is constant time for equal lengths and false otherwise, which covers the
// length-mismatch fallback to plain equality.
func signaturesEqual(expected, provided string) bool {
	return hmac.Equal([]byte(expected), []byte(provided))
}

func hmacBase64(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func sortedPairs(payload Payload) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+stringify(payload[key]))
	}
	return strings.Join(pairs, "&")
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
