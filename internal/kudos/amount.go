package kudos

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision of the payment token
const Decimals = 18

// TimestampLayout is used when rendering kudos timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// plainDecimal is the accepted amount syntax: no sign, no exponent
var plainDecimal = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// maxUint256Bits bounds amounts to what the contract can receive
const maxUint256Bits = 256

// ParseAmount converts a human decimal string ("5", "0.25") into base units
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrAmountParse)
	}

	if !plainDecimal.MatchString(s) {
		return nil, fmt.Errorf("%w: %q is not a plain decimal number", ErrAmountParse, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrAmountParse, s)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrAmountParse, s)
	}

	scaled := d.Shift(Decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimal places", ErrAmountParse, s, Decimals)
	}

	v := scaled.BigInt()
	if v.BitLen() > maxUint256Bits {
		return nil, fmt.Errorf("%w: %s exceeds uint256", ErrAmountParse, s)
	}
	return v, nil
}

// FormatAmount renders base units as a human decimal string
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -Decimals).String()
}

// FormatTimestamp renders a kudos timestamp in local time
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}
