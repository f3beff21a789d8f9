package models

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tags is stored comma-joined ("tea,india") and travels as a JSON array.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

func (t *Tags) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("tags: unsupported type %T", src)
	}
	*t = SplitTags(s)
	return nil
}

// SplitTags splits a comma-joined tag string, dropping blanks.
func SplitTags(s string) Tags {
	out := Tags{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Product maps the products table.
type Product struct {
	Base
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Tags        Tags            `gorm:"type:text;not null;default:''" json:"tags"`
}
