package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Number accepts a JSON number or a numeric string. Null, an empty string
// and an absent key all leave Valid false.
type Number struct {
	Value float64
	Valid bool
}

func NewNumber(v float64) Number { return Number{Value: v, Valid: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	v, ok, err := parseNumber(b)
	if err != nil {
		return err
	}
	*n = Number{Value: v, Valid: ok}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the value, or def when the number was not supplied.
func (n Number) Or(def float64) float64 {
	if n.Valid {
		return n.Value
	}
	return def
}

func parseNumber(b []byte) (float64, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q is not a number", s)
		}
		return v, true, nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, false, fmt.Errorf("%s is not a number", string(b))
	}
	return v, true, nil
}

// FlexString accepts a JSON string or number and keeps its text form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

// StringList accepts a list of strings or a single comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = splitList(s)
		return nil
	}
	var raw []FlexString
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("expected a list of strings: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, string(s))
		}
	}
	*l = out
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProductInput is one product line as callers send it.
type ProductInput struct {
	ProductType string     `json:"productType"`
	Size        string     `json:"size"`
	Spec        string     `json:"spec"`
	Qty         Number     `json:"qty"`
	UnitPrice   Number     `json:"unitPrice"`
	GST         FlexString `json:"gst"`
	Warranty    string     `json:"warranty"`
	Brand       string     `json:"brand"`
	ModelNos    StringList `json:"modelNos"`
	SerialNos   StringList `json:"serialNos"`
}

// CreateOrderInput is the payload accepted when creating an order.
// Products may be a JSON list or a string holding one.
type CreateOrderInput struct {
	SODate               string          `json:"soDate"`
	OrderType            string          `json:"orderType"`
	Company              string          `json:"company"`
	DispatchFrom         string          `json:"dispatchFrom"`
	AssignedTo           string          `json:"assignedTo"`
	Products             json.RawMessage `json:"products"`
	Total                Number          `json:"total"`
	PaymentCollected     Number          `json:"paymentCollected"`
	PaymentDue           Number          `json:"paymentDue"`
	PaymentMethod        string          `json:"paymentMethod"`
	PaymentTerms         string          `json:"paymentTerms"`
	CreditDays           Number          `json:"creditDays"`
	Freightcs            Number          `json:"freightcs"`
	Installation         Number          `json:"installation"`
	InstallChargesStatus string          `json:"installchargesstatus"`
	GemOrderNumber       FlexString      `json:"gemOrderNumber"`
	DemoDate             string          `json:"demoDate"`
	StockStatus          string          `json:"stockStatus"`

	// Contact fields often arrive as numbers from form builders.
	Customername    FlexString `json:"customername"`
	Name            FlexString `json:"name"`
	ContactNo       FlexString `json:"contactNo"`
	AlterNo         FlexString `json:"alterno"`
	CustomerEmail   FlexString `json:"customerEmail"`
	ShippingAddress FlexString `json:"shippingAddress"`
	BillingAddress  FlexString `json:"billingAddress"`
	City            FlexString `json:"city"`
	State           FlexString `json:"state"`
	Pinselect       FlexString `json:"pinselect"`
	Gstno           FlexString `json:"gstno"`
	Remarks         FlexString `json:"remarks"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// parseDate returns false for empty or unparseable input.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
