package fixed

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/govalues/decimal"
)

// Value stores the point as its exact decimal string, NUMERIC columns
// round-trip without float drift.
func (p Point) Value() (driver.Value, error) {
	return p.v.String(), nil
}

func (p *Point) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		p.v = decimal.Decimal{}
		return nil
	case []byte:
		return p.UnmarshalText(v)
	case string:
		return p.UnmarshalText([]byte(v))
	case float64:
		return p.UnmarshalText([]byte(strconv.FormatFloat(v, 'f', -1, 64)))
	case int64:
		p.v = decimal.MustNew(v, 0)
		return nil
	default:
		return fmt.Errorf("unable to scan %T into fixed.Point", src)
	}
}
