package reference

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Kind scopes a payment reference to the record family it belongs to.
type Kind string

const (
	KindCourse             Kind = "course"
	KindAnnualRegistration Kind = "annual_registration"
)

func (k Kind) prefix() string {
	switch k {
	case KindAnnualRegistration:
		return "REG"
	default:
		return "ENR"
	}
}

// Generator produces payment references for recorded payments. References
// are cross-checked against external payment evidence (receipts,
// mobile-money transaction ids), so they must stay unique in practice:
// a UTC timestamp plus a random suffix keeps collisions out of reach.
type Generator struct {
	now func() time.Time
}

// NewGenerator constructs a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorWithClock constructs a Generator with an injectable clock.
func NewGeneratorWithClock(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate returns a reference of the form PREFIX-20240131154502-9F3A2C.
func (g *Generator) Generate(kind Kind) string {
	ts := g.now().UTC().Format("20060102150405")
	return fmt.Sprintf("%s-%s-%s", kind.prefix(), ts, randomSuffix(3))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back to
		// the clock so a reference is still produced.
		return fmt.Sprintf("%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
