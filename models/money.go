package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MoneyPlaces is the fixed number of decimal places for currency values.
const MoneyPlaces = 2

// Money is a fixed-point currency amount with two decimal places.
type Money struct {
	decimal.Decimal
}

// NewMoney parses s ("12.5", "12.50") into Money rounded to two places.
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{d.Round(MoneyPlaces)}, nil
}

// MustMoney is NewMoney for literals.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) String() string { return m.StringFixed(MoneyPlaces) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	m.Decimal = d.Round(MoneyPlaces)
	return nil
}

// GormDBDataType picks the column type per dialect. SQLite would coerce a
// decimal column to REAL, so amounts are kept there as canonical text.
func (Money) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "text"
	default:
		return "decimal(8,2)"
	}
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.Decimal = d.Round(MoneyPlaces)
	return nil
}
