package hftcore

import (
	"fmt"
	"math"
	"strconv"

	"github.com/quagmt/udecimal"
)

// PriceScale is the number of Price units in 1.0.
const PriceScale = 100_000_000

// PricePrecision is the number of decimal places a Price carries.
const PricePrecision = 8

const (
	unitsPer32nd = PriceScale / 32
	unitsPer64th = PriceScale / 64
)

var priceScaleDecimal = udecimal.MustFromInt64(PriceScale, 0)

// Price is an exact fixed-point price counted in 1e-8 units. Comparisons are
// integer comparisons, so no rounding ever enters price priority.
type Price int64

// NewPrice builds a price from a whole part and a fraction given in 1e-8 units.
func NewPrice(whole int64, fraction int64) Price {
	return Price(whole*PriceScale + fraction)
}

// Price32nd builds a treasury style price: whole points plus thirty-seconds,
// plus an optional half thirty-second (a sixty-fourth). 99-16+ is
// Price32nd(99, 16, true).
func Price32nd(whole int64, thirtySeconds uint8, half bool) Price {
	p := whole*PriceScale + int64(thirtySeconds)*unitsPer32nd
	if half {
		p += unitsPer64th
	}
	return Price(p)
}

// NewPriceFromDecimal converts d to a Price. It fails when d has more than
// PricePrecision decimal places or does not fit in an int64.
func NewPriceFromDecimal(d udecimal.Decimal) (Price, error) {
	scaled := d.Mul(priceScaleDecimal)
	if !scaled.Trunc(0).Equal(scaled) {
		return 0, fmt.Errorf("%s: %w", d.String(), ErrPricePrecision)
	}
	v, err := scaled.Int64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", d.String(), ErrPriceOverflow)
	}
	return Price(v), nil
}

// ParsePrice parses a decimal string such as "99.515625".
func ParsePrice(s string) (Price, error) {
	d, err := udecimal.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return NewPriceFromDecimal(d)
}

// MustParsePrice is like ParsePrice but panics on error.
func MustParsePrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal returns p as an exact decimal.
func (p Price) Decimal() udecimal.Decimal {
	return udecimal.MustFromInt64(int64(p), PricePrecision)
}

// Whole returns the integer part of p.
func (p Price) Whole() int64 {
	return int64(p) / PriceScale
}

// IsPositive reports whether p is strictly greater than zero.
func (p Price) IsPositive() bool {
	return p > 0
}

// Notional returns p multiplied by qty.
func (p Price) Notional(qty uint64) udecimal.Decimal {
	if qty > math.MaxInt64 {
		return p.Decimal().Mul(udecimal.MustParse(strconv.FormatUint(qty, 10)))
	}
	return p.Decimal().Mul(udecimal.MustFromInt64(int64(qty), 0))
}

func (p Price) String() string {
	return p.Decimal().String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Price) UnmarshalText(data []byte) error {
	v, err := ParsePrice(string(data))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
