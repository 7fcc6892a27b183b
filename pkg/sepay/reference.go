package sepay

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ReferencePrefix is the token payers copy into the bank transfer description.
const ReferencePrefix = "SEVQR"

const defaultQRHost = "qr.sepay.vn"

// Banks may drop the space after the prefix or replace it with punctuation.
var referencePattern = regexp.MustCompile(`(?i)(` + ReferencePrefix + `)[\s.\-_]*([A-Za-z0-9]+)`)

// BuildTransferReference returns "<PREFIX> <KIND3><LAST6><SUFFIX>", e.g. "SEVQR TURABCDEF1234".
// The suffix is the last four digits of the unix millisecond clock so repeated attempts for the
// same booking do not collide.
func BuildTransferReference(kindCode, bookingID string, now time.Time) string {
	id := strings.ReplaceAll(bookingID, "-", "")
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	suffix := now.UnixMilli() % 10000

	return fmt.Sprintf("%s %s%s%04d", ReferencePrefix, strings.ToUpper(kindCode), strings.ToUpper(id), suffix)
}

// BuildQRCodeURL renders the hosted QR image link. No network call is made.
func BuildQRCodeURL(host, accountNumber, bankCode string, amount int64, reference string) string {
	if host == "" {
		host = defaultQRHost
	}
	des := strings.ReplaceAll(url.QueryEscape(reference), "+", "%20")

	return fmt.Sprintf("https://%s/img?acc=%s&bank=%s&amount=%d&des=%s&template=compact",
		host, url.QueryEscape(accountNumber), url.QueryEscape(bankCode), amount, des)
}

// ExtractReference finds the first "<PREFIX><separators><alnum>" token in free-text transfer
// content and returns it as "<PREFIX> <alnum>", keeping the case the payer used.
func ExtractReference(content string) (string, bool) {
	match := referencePattern.FindStringSubmatch(content)
	if match == nil {
		return "", false
	}
	return match[1] + " " + match[2], true
}

// NormalizeReference uppercases and strips whitespace so bank-mangled descriptions still match.
func NormalizeReference(reference string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reference), ""))
}
