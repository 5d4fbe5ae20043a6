package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document numbers carry the issue date plus a short random suffix, e.g.
// INV-20260828-4F9A2C1B. The suffix comes from a v4 UUID so collisions within
// a day are negligible and the unique column catches the rest.
func documentNumber(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), suffix)
}

func newInvoiceNumber() string {
	return documentNumber("INV")
}

func newReturnNumber() string {
	return documentNumber("RET")
}
