package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Document-shaped fields are stored as JSONB columns.

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", src)
	}
}

func valueJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d Dimensions) Value() (driver.Value, error) { return valueJSON(d) }
func (d *Dimensions) Scan(src interface{}) error  { return scanJSON(src, d) }

func (s ManufacturerSettings) Value() (driver.Value, error) { return valueJSON(s) }
func (s *ManufacturerSettings) Scan(src interface{}) error  { return scanJSON(src, s) }

func (s BuyerSettings) Value() (driver.Value, error) { return valueJSON(s) }
func (s *BuyerSettings) Scan(src interface{}) error  { return scanJSON(src, s) }

func (w Workpieces) Value() (driver.Value, error) {
	if w == nil {
		return []byte("[]"), nil
	}
	return valueJSON([]Workpiece(w))
}
func (w *Workpieces) Scan(src interface{}) error { return scanJSON(src, (*[]Workpiece)(w)) }

func (d ShippingDocs) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return valueJSON([]ShippingDoc(d))
}
func (d *ShippingDocs) Scan(src interface{}) error { return scanJSON(src, (*[]ShippingDoc)(d)) }

func (t TrackingInfo) Value() (driver.Value, error) { return valueJSON(t) }
func (t *TrackingInfo) Scan(src interface{}) error  { return scanJSON(src, t) }

func (c RatingCategories) Value() (driver.Value, error) { return valueJSON(c) }
func (c *RatingCategories) Scan(src interface{}) error  { return scanJSON(src, c) }
