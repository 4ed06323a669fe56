package ordering

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Spacing holds the constants of the fractional ordering scheme.
type Spacing struct {
	// Empty is the order given to the first card of an empty stage.
	Empty float64
	// Step is added to the rounded tail order when appending.
	Step float64
}

var DefaultSpacing = Spacing{Empty: 100, Step: 10}

var decCtx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfEven
	return c
}()

func toDecimal(f float64) (*apd.Decimal, error) {
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, fmt.Errorf("order %v: %w", f, err)
	}
	d.Reduce(d)
	return d, nil
}

// fractionDigits is the number of digits after the decimal point of a reduced decimal.
func fractionDigits(d *apd.Decimal) int32 {
	if d.Exponent < 0 {
		return -d.Exponent
	}
	return 0
}

// contextFor returns a context wide enough that every step over the operands,
// quantized to digits fractional digits, is exact whatever their magnitude.
func contextFor(digits int32, ds ...*apd.Decimal) *apd.Context {
	width, frac := int64(1), int64(digits)
	for _, d := range ds {
		if w := d.NumDigits() + int64(d.Exponent); w > width {
			width = w
		}
		if f := int64(fractionDigits(d)); f > frac {
			frac = f
		}
	}
	prec := width + frac + 2
	if prec < int64(decCtx.Precision) {
		return decCtx
	}
	return decCtx.WithPrecision(uint32(prec))
}

func unit(digits int32) *apd.Decimal {
	return apd.New(1, -digits)
}

// Neighbour is the order of an adjacent card; Ok is false when there is none.
type Neighbour struct {
	Order float64
	Ok    bool
}

// Between returns an order that sorts after prev and before next.
//
//   - no neighbours: Empty
//   - tail (no next): round(prev) + Step
//   - head (no prev): next minus one unit at one digit finer than next's fraction
//   - otherwise: the midpoint of prev and next, quantized to one digit beyond the
//     longer of the two fractions. Halving adds at most one fractional digit, so the
//     quantization is exact.
func (s Spacing) Between(prev, next Neighbour) (float64, error) {
	switch {
	case !prev.Ok && !next.Ok:
		return s.Empty, nil
	case !next.Ok:
		return s.tail(prev.Order)
	case !prev.Ok:
		return head(next.Order)
	default:
		return middle(prev.Order, next.Order)
	}
}

func (s Spacing) tail(prev float64) (float64, error) {
	p, err := toDecimal(prev)
	if err != nil {
		return 0, err
	}
	step, err := toDecimal(s.Step)
	if err != nil {
		return 0, err
	}
	digits := fractionDigits(step)
	c := contextFor(digits, p, step)
	// round half toward +Inf: floor(p + 0.5)
	r := new(apd.Decimal)
	if _, err := c.Add(r, p, apd.New(5, -1)); err != nil {
		return 0, err
	}
	if _, err := c.Floor(r, r); err != nil {
		return 0, err
	}
	if _, err := c.Add(r, r, step); err != nil {
		return 0, err
	}
	return finish(c, r, digits)
}

func head(next float64) (float64, error) {
	n, err := toDecimal(next)
	if err != nil {
		return 0, err
	}
	digits := fractionDigits(n) + 1
	c := contextFor(digits, n)
	r := new(apd.Decimal)
	if _, err := c.Sub(r, n, unit(digits)); err != nil {
		return 0, err
	}
	return finish(c, r, digits)
}

func middle(prev, next float64) (float64, error) {
	p, err := toDecimal(prev)
	if err != nil {
		return 0, err
	}
	n, err := toDecimal(next)
	if err != nil {
		return 0, err
	}
	digits := fractionDigits(p)
	if d := fractionDigits(n); d > digits {
		digits = d
	}
	digits++
	c := contextFor(digits, p, n)
	r := new(apd.Decimal)
	if _, err := c.Add(r, p, n); err != nil {
		return 0, err
	}
	if _, err := c.Quo(r, r, apd.New(2, 0)); err != nil {
		return 0, err
	}
	return finish(c, r, digits)
}

// finish rounds r to at most digits fractional digits and converts it back to float64.
func finish(c *apd.Context, r *apd.Decimal, digits int32) (float64, error) {
	if _, err := c.Quantize(r, r, -digits); err != nil {
		return 0, err
	}
	return r.Float64()
}
