// Package money converts between the ledger's integer stroop amounts and
// the XLM decimal strings shown to users. Amounts cross every boundary as
// stroops; no float ever reaches the ledger.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/carrotlabs/go-carrot-market/constants"
	"golang.org/x/xerrors"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ToXLM renders a stroop amount as a fixed 7-decimal XLM string.
func ToXLM(stroops int64) string {
	sign := ""
	if stroops < 0 {
		sign = "-"
		stroops = -stroops
	}
	return fmt.Sprintf("%s%d.%07d", sign, stroops/constants.StroopScale, stroops%constants.StroopScale)
}

// ToStroops parses an XLM decimal string into stroops, truncating anything
// below the stroop scale toward zero. Negative and non-numeric input is
// rejected with ErrInvalidAmount.
func ToStroops(xlm string) (int64, error) {
	s := strings.TrimSpace(xlm)
	if s == "" {
		return 0, xerrors.Errorf("empty input: %w", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return 0, xerrors.Errorf("negative amount %q: %w", xlm, ErrInvalidAmount)
	}
	s = strings.TrimPrefix(s, "+")

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}

	// both parts must be bare digit runs; ParseInt alone would let a stray
	// sign inside the fraction through
	if !allDigits(intPart) || (fracPart != "" && !allDigits(fracPart)) {
		return 0, xerrors.Errorf("parse %q: %w", xlm, ErrInvalidAmount)
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("parse %q: %w", xlm, ErrInvalidAmount)
	}

	// keep at most 7 fractional digits, the rest is truncated
	if len(fracPart) > 7 {
		fracPart = fracPart[:7]
	}
	var frac int64
	if fracPart != "" {
		frac, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, xerrors.Errorf("parse %q: %w", xlm, ErrInvalidAmount)
		}
		for i := len(fracPart); i < 7; i++ {
			frac *= 10
		}
	}

	return whole*constants.StroopScale + frac, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// SplitStroops returns the provider and platform shares of a payment, each
// computed independently from the total the way the marketplace contract
// does it.
func SplitStroops(payment int64) (provider int64, platform int64) {
	platform = payment * constants.PlatformFeePercent / 100
	provider = payment - platform
	return provider, platform
}

// FeeSplit renders the provider/platform shares for display at 4 decimals.
// Presentation only; the actual transfer is the ledger's business.
func FeeSplit(payment int64) (provider string, platform string) {
	xlm := float64(payment) / constants.StroopScale
	provider = fmt.Sprintf("%.4f", xlm*0.95)
	platform = fmt.Sprintf("%.4f", xlm*0.05)
	return provider, platform
}
