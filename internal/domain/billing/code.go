package billing

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeGenerator produces candidate document codes. Candidates may collide;
// callers check uniqueness and retry.
type CodeGenerator interface {
	Next(now time.Time) string
}

// InvoiceCodeGenerator yields codes of the form INV-YYYYMMDD-NNN with NNN in 100..999
type InvoiceCodeGenerator struct{}

// Next returns a candidate invoice code for the given day
func (InvoiceCodeGenerator) Next(now time.Time) string {
	return fmt.Sprintf("INV-%s-%03d", now.UTC().Format("20060102"), 100+rand.IntN(900))
}

// OrderCodeGenerator yields codes of the form ORD-YYYYMMDD-XXXXXXXX
type OrderCodeGenerator struct{}

// Next returns a candidate order code for the given day
func (OrderCodeGenerator) Next(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// CodeGeneratorFunc adapts a function to CodeGenerator
type CodeGeneratorFunc func(now time.Time) string

// Next calls f(now)
func (f CodeGeneratorFunc) Next(now time.Time) string {
	return f(now)
}
