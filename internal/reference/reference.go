// Package reference generates the opaque, shareable references printed on
// receipts. A reference is the operation prefix, the creation time in base36
// milliseconds and 50 random bits in Crockford base32.
package reference

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Prefixes per operation
const (
	PrefixFund     = "FUND"
	PrefixPay      = "PAY"
	PrefixQR       = "QR"
	PrefixBill     = "BILL"
	PrefixTopUp    = "TOPUP"
	PrefixRemit    = "REM"
	PrefixPurchase = "ORD"
)

// alphabet never contains '-', so suffixed references cannot collide with generated ones
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const randomChars = 10 // 5 bits each

// Generator produces references. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	random io.Reader
	now    func() time.Time
}

// NewGenerator returns a generator backed by crypto/rand and the wall clock
func NewGenerator() *Generator {
	return &Generator{random: rand.Reader, now: time.Now}
}

// NewGeneratorWithSource lets tests pin the clock and the entropy
func NewGeneratorWithSource(random io.Reader, now func() time.Time) *Generator {
	return &Generator{random: random, now: now}
}

// Generate returns prefix + base36(ms) + 10 random characters
func (g *Generator) Generate(prefix string) (string, error) {
	if prefix == "" || strings.ContainsRune(prefix, '-') {
		return "", fmt.Errorf("invalid reference prefix %q", prefix)
	}

	var buf [8]byte
	g.mu.Lock()
	_, err := io.ReadFull(g.random, buf[:])
	g.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to read reference entropy: %w", err)
	}
	bits := binary.BigEndian.Uint64(buf[:])

	var sb strings.Builder
	sb.Grow(len(prefix) + 9 + randomChars)
	sb.WriteString(prefix)
	sb.WriteString(strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36)))
	for i := 0; i < randomChars; i++ {
		sb.WriteByte(alphabet[bits&0x1f])
		bits >>= 5
	}
	return sb.String(), nil
}
