// Package barcode generates item barcodes of the form IT<yy><nnnnn>.
package barcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/erazemk/assetnexus/internal/store"
)

// Prefix starts every generated barcode.
const Prefix = "IT"

// DefaultMaxAttempts bounds how many candidates are tried before giving up.
const DefaultMaxAttempts = 32

const (
	minSerial = 10000
	maxSerial = 99999
)

// ExistsFunc reports whether a candidate barcode is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator draws random barcodes until it finds one that is free.
type Generator struct {
	// MaxAttempts defaults to DefaultMaxAttempts when zero.
	MaxAttempts int
	// Rand defaults to crypto/rand.
	Rand io.Reader
	// Now defaults to time.Now.
	Now func() time.Time
}

// Next returns an unused barcode, or store.ErrGenerationExhausted once
// every attempt collided.
func (g *Generator) Next(ctx context.Context, exists ExistsFunc) (string, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	nowFn := g.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	year := nowFn().Year() % 100

	for range attempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := g.serial()
		if err != nil {
			return "", fmt.Errorf("drawing barcode: %w", err)
		}
		code := Format(year, n)

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: no free barcode after %d attempts", store.ErrGenerationExhausted, attempts)
}

func (g *Generator) serial() (int, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	n, err := rand.Int(src, big.NewInt(maxSerial-minSerial+1))
	if err != nil {
		return 0, err
	}
	return minSerial + int(n.Int64()), nil
}

// Format builds a barcode from a two-digit year and a five-digit serial.
func Format(year, serial int) string {
	return fmt.Sprintf("%s%02d%05d", Prefix, year%100, serial)
}
