package sepay_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"travel-booking/pkg/sepay"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "webhook-secret"

func hmacOf(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func samplePayload() sepay.Payload {
	return sepay.Payload{
		"id":              int64(92704),
		"gateway":         "MBBank",
		"transactionDate": "2024-07-25 14:02:37",
		"accountNumber":   "0123456789",
		"content":         "SEVQR TUR1740001234",
		"transferType":    "in",
		"transferAmount":  int64(150000),
		"referenceCode":   "MBVCB.3278907687",
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Run("same payload verifies", func(t *testing.T) {
		payload := samplePayload()
		sig := sepay.Sign(payload, testSecret)
		assert.True(t, sepay.VerifyWebhookSignature(payload, sig, testSecret))
	})

	t.Run("survives a JSON round trip", func(t *testing.T) {
		payload := samplePayload()
		sig := sepay.Sign(payload, testSecret)

		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		decoded, _, err := sepay.ParseWebhook(raw)
		require.NoError(t, err)
		assert.True(t, sepay.VerifyWebhookSignature(decoded, sig, testSecret))
	})

	t.Run("tampered amount fails", func(t *testing.T) {
		payload := samplePayload()
		sig := sepay.Sign(payload, testSecret)

		payload["transferAmount"] = int64(1)
		assert.False(t, sepay.VerifyWebhookSignature(payload, sig, testSecret))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		payload := samplePayload()
		sig := sepay.Sign(payload, "other-secret")
		assert.False(t, sepay.VerifyWebhookSignature(payload, sig, testSecret))
	})

	t.Run("empty secret or signature fails", func(t *testing.T) {
		payload := samplePayload()
		assert.False(t, sepay.VerifyWebhookSignature(payload, sepay.Sign(payload, ""), ""))
		assert.False(t, sepay.VerifyWebhookSignature(payload, "", testSecret))
	})

	t.Run("truncated signature fails", func(t *testing.T) {
		payload := samplePayload()
		sig := sepay.Sign(payload, testSecret)
		assert.False(t, sepay.VerifyWebhookSignature(payload, sig[:10], testSecret))
	})
}

func TestVerifierSchemes(t *testing.T) {
	t.Run("fields scheme", func(t *testing.T) {
		payload := samplePayload()
		sig := hmacOf("2024-07-25 14:02:37|0123456789|150000", testSecret)

		scheme, ok := sepay.NewVerifier(testSecret).Verify(payload, sig)
		assert.True(t, ok)
		assert.Equal(t, "fields", scheme)
	})

	t.Run("fields scheme skipped when a field is missing", func(t *testing.T) {
		payload := samplePayload()
		delete(payload, "transactionDate")

		_, ok := sepay.FieldsScheme{}.Canonical(payload)
		assert.False(t, ok)
	})

	t.Run("json scheme", func(t *testing.T) {
		payload := samplePayload()
		canonical, ok := sepay.JSONScheme{}.Canonical(payload)
		require.True(t, ok)

		scheme, ok := sepay.NewVerifier(testSecret).Verify(payload, hmacOf(canonical, testSecret))
		assert.True(t, ok)
		assert.Equal(t, "json", scheme)
	})

	t.Run("sorted scheme matches Sign", func(t *testing.T) {
		payload := samplePayload()

		scheme, ok := sepay.NewVerifier(testSecret).Verify(payload, sepay.Sign(payload, testSecret))
		assert.True(t, ok)
		assert.Equal(t, "sorted", scheme)
	})

	t.Run("restricted verifier ignores other schemes", func(t *testing.T) {
		payload := samplePayload()
		verifier, err := sepay.NewVerifierFromNames(testSecret, []string{"fields"})
		require.NoError(t, err)

		_, ok := verifier.Verify(payload, sepay.Sign(payload, testSecret))
		assert.False(t, ok)
	})

	t.Run("unknown scheme name", func(t *testing.T) {
		_, err := sepay.NewVerifierFromNames(testSecret, []string{"fields", "md5"})
		assert.Error(t, err)
	})

	t.Run("names are case insensitive", func(t *testing.T) {
		scheme, err := sepay.SchemeByName(" JSON ")
		require.NoError(t, err)
		assert.Equal(t, "json", scheme.Name())
	})
}

func TestVerifyDecodedNumbers(t *testing.T) {
	raw := []byte(`{"id":9007199254740993,"transferAmount":150000}`)

	t.Run("large id keeps every digit in the sorted form", func(t *testing.T) {
		payload, err := sepay.DecodePayload(raw)
		require.NoError(t, err)

		sig := hmacOf("id=9007199254740993&transferAmount=150000", testSecret)
		_, ok := sepay.NewVerifier(testSecret, sepay.SortedScheme{}).Verify(payload, sig)
		assert.True(t, ok)
	})

	t.Run("large id keeps every digit in the json form", func(t *testing.T) {
		payload, err := sepay.DecodePayload(raw)
		require.NoError(t, err)

		sig := hmacOf(`{"id":9007199254740993,"transferAmount":150000}`, testSecret)
		_, ok := sepay.NewVerifier(testSecret, sepay.JSONScheme{}).Verify(payload, sig)
		assert.True(t, ok)
	})

	t.Run("decimal amount is signed as sent", func(t *testing.T) {
		payload, err := sepay.DecodePayload([]byte(`{
			"transactionDate": "2024-07-25 14:02:37",
			"accountNumber": "0123456789",
			"transferAmount": 150000.0
		}`))
		require.NoError(t, err)

		sig := hmacOf("2024-07-25 14:02:37|0123456789|150000.0", testSecret)
		scheme, ok := sepay.NewVerifier(testSecret).Verify(payload, sig)
		assert.True(t, ok)
		assert.Equal(t, "fields", scheme)
	})
}
