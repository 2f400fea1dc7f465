package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Product is one line item; it lives inside the order row, not in its own table.
type Product struct {
	ProductType string   `json:"productType" validate:"required"`
	Size        string   `json:"size,omitempty"`
	Spec        string   `json:"spec,omitempty"`
	Qty         int      `json:"qty" validate:"gt=0"`
	UnitPrice   float64  `json:"unitPrice" validate:"gte=0"`
	GST         string   `json:"gst" validate:"required"`
	Warranty    string   `json:"warranty"`
	Brand       string   `json:"brand"`
	ModelNos    []string `json:"modelNos"`
	SerialNos   []string `json:"serialNos"`
}

// GSTIncluding marks a unit price that already carries tax.
const GSTIncluding = "including"

const ProductTypeIFPD = "IFPD"

// Products is stored as a jsonb array.
type Products []Product

func (p Products) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Products) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan Products: %v", value)
	}
	return json.Unmarshal(raw, p)
}
