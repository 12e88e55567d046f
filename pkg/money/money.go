package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable monetary amount held at exactly two decimal
// places. The field is unexported so every value in circulation has
// already been through the single rounding primitive.
type Money struct {
	amount decimal.Decimal
}

// New rounds the given decimal to two places, half away from zero, and
// wraps it. This is the only place a raw decimal becomes a Money;
// callers must not round before calling it.
func New(d decimal.Decimal) Money {
	return Money{amount: d.Round(2)}
}

// FromString parses a decimal string (e.g. "1234.56") into a Money value.
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return New(d), nil
}

// FromFloat converts a float64 into a Money value.
func FromFloat(f float64) Money {
	return New(decimal.NewFromFloat(f))
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Add returns m + other. Sums of two-decimal values are exact, so no
// rounding happens here.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other, exact for the same reason as Add.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// MulRate multiplies the amount by a rate and rounds the product once.
// Used for deriving interest and tax from a balance.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(rate).Round(2)}
}

// Div divides the amount by an integer count and rounds the quotient once.
func (m Money) Div(n int64) Money {
	return Money{amount: m.amount.Div(decimal.NewFromInt(n)).Round(2)}
}

// Equal reports exact equality on the minor unit.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Cmp returns -1, 0 or 1 comparing m against other.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Decimal returns the underlying decimal amount.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON renders Money as a quoted fixed two-decimal string so
// consumers never see binary floating point.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid money value %s: %w", data, err)
	}
	*m = New(d)
	return nil
}

// Value implements driver.Valuer; amounts are stored as TEXT to avoid
// precision loss in the database.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for TEXT columns written by Value.
func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		parsed, err := FromString(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := FromString(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case nil:
		*m = Zero()
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}
