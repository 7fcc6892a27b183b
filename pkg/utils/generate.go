package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTransactionID creates the local payment transaction token.
// Format: PAY-YYYYMMDDHHMMSS-XXXXXXXX
func GenerateTransactionID(now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102150405"), random)
}
