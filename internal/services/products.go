package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"order_manager/internal/apperrors"
	"order_manager/internal/models"

	"github.com/shopspring/decimal"
)

const (
	WarrantyTender   = "As Per Tender"
	WarrantyPromark  = "3 Years"
	WarrantyStandard = "1 Year"

	brandPromark = "Promark"
	defaultGST   = "18"
)

var hundred = decimal.NewFromInt(100)

// ParseProducts decodes the products field. It accepts a JSON list or a
// string containing one; anything else is a parse error. A missing field
// yields nil.
func ParseProducts(raw json.RawMessage) ([]ProductInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperrors.Parse("Invalid products format", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		raw = []byte(s)
	}
	if raw[0] != '[' {
		return nil, apperrors.Parse("Products must be a list", nil)
	}
	var items []ProductInput
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperrors.Parse("Invalid products format", err)
	}
	return items, nil
}

// NormalizeProducts validates every line and fills in derived fields. When
// fillGST is set a missing gst becomes the standard rate instead of an error.
// Any invalid line fails the whole list.
func NormalizeProducts(items []ProductInput, orderType string, fillGST bool) (models.Products, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("products", "At least one product is required")
	}

	var fields []apperrors.FieldError
	bad := func(i int, field, msg string) {
		fields = append(fields, apperrors.FieldError{
			Field:   fmt.Sprintf("products[%d].%s", i, field),
			Message: msg,
		})
	}

	out := make(models.Products, 0, len(items))
	for i, in := range items {
		p := models.Product{
			ProductType: strings.TrimSpace(in.ProductType),
			Size:        strings.TrimSpace(in.Size),
			Spec:        strings.TrimSpace(in.Spec),
			GST:         strings.TrimSpace(string(in.GST)),
			Warranty:    strings.TrimSpace(in.Warranty),
			Brand:       strings.TrimSpace(in.Brand),
			ModelNos:    []string(in.ModelNos),
			SerialNos:   []string(in.SerialNos),
		}
		if p.ModelNos == nil {
			p.ModelNos = []string{}
		}
		if p.SerialNos == nil {
			p.SerialNos = []string{}
		}

		if p.ProductType == "" {
			bad(i, "productType", "is required")
		}

		switch {
		case !in.Qty.Valid:
			bad(i, "qty", "is required")
		case in.Qty.Value <= 0 || in.Qty.Value != float64(int(in.Qty.Value)):
			bad(i, "qty", "must be a positive whole number")
		default:
			p.Qty = int(in.Qty.Value)
		}

		switch {
		case !in.UnitPrice.Valid:
			bad(i, "unitPrice", "is required")
		case in.UnitPrice.Value < 0:
			bad(i, "unitPrice", "must not be negative")
		default:
			p.UnitPrice = in.UnitPrice.Value
		}

		if p.GST == "" && fillGST {
			p.GST = defaultGST
		}
		if gst, ok := normalizeGST(p.GST); ok {
			p.GST = gst
		} else if p.GST == "" {
			bad(i, "gst", "is required")
		} else {
			bad(i, "gst", `must be a number or "including"`)
		}

		if p.ProductType == models.ProductTypeIFPD {
			if len(p.ModelNos) == 0 {
				bad(i, "modelNos", "is required for IFPD products")
			}
			if p.Brand == "" {
				bad(i, "brand", "is required for IFPD products")
			}
		}

		if p.Warranty == "" {
			p.Warranty = DefaultWarranty(orderType, p)
		}
		out = append(out, p)
	}

	if len(fields) > 0 {
		return nil, apperrors.ValidationFields("Invalid product data", fields)
	}
	return out, nil
}

func normalizeGST(s string) (string, bool) {
	if strings.EqualFold(s, models.GSTIncluding) {
		return models.GSTIncluding, true
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || v < 0 {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// DefaultWarranty applies the warranty precedence for a line without one.
func DefaultWarranty(orderType string, p models.Product) string {
	switch {
	case orderType == models.OrderTypeB2G:
		return WarrantyTender
	case p.ProductType == models.ProductTypeIFPD && strings.EqualFold(p.Brand, brandPromark):
		return WarrantyPromark
	default:
		return WarrantyStandard
	}
}

func gstRate(gst string) decimal.Decimal {
	if gst == models.GSTIncluding {
		return decimal.Zero
	}
	rate, err := decimal.NewFromString(gst)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// ComputeTotal sums qty x unitPrice x (1 + gst/100) over the lines and adds
// freight and the installation charge, rounded to paise.
func ComputeTotal(products models.Products, freight, installation float64) float64 {
	sum := decimal.Zero
	for _, p := range products {
		line := decimal.NewFromInt(int64(p.Qty)).
			Mul(decimal.NewFromFloat(p.UnitPrice)).
			Mul(decimal.NewFromInt(1).Add(gstRate(p.GST).Div(hundred)))
		sum = sum.Add(line)
	}
	sum = sum.Add(decimal.NewFromFloat(freight)).Add(decimal.NewFromFloat(installation))
	return sum.Round(2).InexactFloat64()
}

// PaymentDue is total minus what has been collected.
func PaymentDue(total, collected float64) float64 {
	return decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(collected)).Round(2).InexactFloat64()
}

// ProductsEqual compares the fields an edit is allowed to change.
func ProductsEqual(a, b models.Products) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ProductType != y.ProductType ||
			x.Qty != y.Qty ||
			x.UnitPrice != y.UnitPrice ||
			x.GST != y.GST ||
			x.Brand != y.Brand ||
			x.Warranty != y.Warranty ||
			!sameStrings(x.SerialNos, y.SerialNos) ||
			!sameStrings(x.ModelNos, y.ModelNos) {
			return false
		}
	}
	return true
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
