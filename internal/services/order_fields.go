package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"order_manager/internal/models"

	"github.com/google/uuid"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindInt
	kindDate
	kindUUID
	kindProducts
)

// editableField describes one key accepted by the edit operation.
type editableField struct {
	column string
	kind   fieldKind
	// check returns a message when the decoded value is unacceptable.
	check  func(v interface{}) string
	assign func(o *models.Order, v interface{})
}

func textField(column string, assign func(o *models.Order, s string)) editableField {
	return editableField{column: column, kind: kindText, assign: func(o *models.Order, v interface{}) {
		assign(o, v.(string))
	}}
}

func numberField(column string, assign func(o *models.Order, f float64)) editableField {
	return editableField{column: column, kind: kindNumber, assign: func(o *models.Order, v interface{}) {
		assign(o, v.(float64))
	}}
}

func dateField(column string, assign func(o *models.Order, t *time.Time)) editableField {
	return editableField{column: column, kind: kindDate, assign: func(o *models.Order, v interface{}) {
		t := v.(time.Time)
		assign(o, &t)
	}}
}

// moneyField is a numberField that rejects negative amounts.
func moneyField(column string, assign func(o *models.Order, f float64)) editableField {
	f := numberField(column, assign)
	f.check = func(v interface{}) string {
		if v.(float64) < 0 {
			return "must not be negative"
		}
		return ""
	}
	return f
}

// editableFields is the allow-list for partial updates. Identity fields,
// createdBy, approvalTimestamp and productsEditTimestamp are absent and can
// never be written through an edit. The fulfillment, dispatch and receipt
// dates are editable; transition rules may also set them.
var editableFields = map[string]editableField{
	"orderType": textField("order_type", func(o *models.Order, s string) { o.OrderType = s }),
	"company":   textField("company", func(o *models.Order, s string) { o.Company = s }),
	"dispatchFrom": {
		column: "dispatch_from",
		kind:   kindText,
		check: func(v interface{}) string {
			if s := v.(string); s != "" && !models.IsDispatchLocation(s) {
				return "is not a known dispatch location"
			}
			return ""
		},
		assign: func(o *models.Order, v interface{}) { o.DispatchFrom = v.(string) },
	},
	"assignedTo": {
		column: "assigned_to",
		kind:   kindUUID,
		assign: func(o *models.Order, v interface{}) { o.AssignedTo = v.(*uuid.UUID) },
	},
	"products": {column: "products", kind: kindProducts},

	"total":                moneyField("total", func(o *models.Order, f float64) { o.Total = f }),
	"paymentCollected":     moneyField("payment_collected", func(o *models.Order, f float64) { o.PaymentCollected = f }),
	"paymentDue":           numberField("payment_due", func(o *models.Order, f float64) { o.PaymentDue = f }),
	"paymentMethod":        textField("payment_method", func(o *models.Order, s string) { o.PaymentMethod = s }),
	"paymentTerms":         textField("payment_terms", func(o *models.Order, s string) { o.PaymentTerms = s }),
	"freightcs":            moneyField("freightcs", func(o *models.Order, f float64) { o.Freightcs = f }),
	"installation":         moneyField("installation", func(o *models.Order, f float64) { o.Installation = f }),
	"installchargesstatus": textField("install_charges_status", func(o *models.Order, s string) { o.InstallChargesStatus = s }),
	"gemOrderNumber":       textField("gem_order_number", func(o *models.Order, s string) { o.GemOrderNumber = s }),
	"actualFreight":        moneyField("actual_freight", func(o *models.Order, f float64) { o.ActualFreight = f }),
	"creditDays": {
		column: "credit_days",
		kind:   kindInt,
		assign: func(o *models.Order, v interface{}) { o.CreditDays = v.(int) },
	},

	"sostatus":           textField("sostatus", func(o *models.Order, s string) { o.Sostatus = s }),
	"fulfillingStatus":   textField("fulfilling_status", func(o *models.Order, s string) { o.FulfillingStatus = s }),
	"completionStatus":   textField("completion_status", func(o *models.Order, s string) { o.CompletionStatus = s }),
	"dispatchStatus":     textField("dispatch_status", func(o *models.Order, s string) { o.DispatchStatus = s }),
	"installationStatus": textField("installation_status", func(o *models.Order, s string) { o.InstallationStatus = s }),
	"billStatus":         textField("bill_status", func(o *models.Order, s string) { o.BillStatus = s }),
	"paymentReceived":    textField("payment_received", func(o *models.Order, s string) { o.PaymentReceived = s }),
	"stockStatus":        textField("stock_status", func(o *models.Order, s string) { o.StockStatus = s }),

	"demoDate":        dateField("demo_date", func(o *models.Order, t *time.Time) { o.DemoDate = t }),
	"fulfillmentDate": dateField("fulfillment_date", func(o *models.Order, t *time.Time) { o.FulfillmentDate = t }),
	"dispatchDate":    dateField("dispatch_date", func(o *models.Order, t *time.Time) { o.DispatchDate = t }),
	"receiptDate":     dateField("receipt_date", func(o *models.Order, t *time.Time) { o.ReceiptDate = t }),
	"invoiceDate":     dateField("invoice_date", func(o *models.Order, t *time.Time) { o.InvoiceDate = t }),

	"customername":    textField("customername", func(o *models.Order, s string) { o.Customername = s }),
	"name":            textField("name", func(o *models.Order, s string) { o.Name = s }),
	"contactNo":       textField("contact_no", func(o *models.Order, s string) { o.ContactNo = s }),
	"alterno":         textField("alter_no", func(o *models.Order, s string) { o.AlterNo = s }),
	"customerEmail":   textField("customer_email", func(o *models.Order, s string) { o.CustomerEmail = s }),
	"shippingAddress": textField("shipping_address", func(o *models.Order, s string) { o.ShippingAddress = s }),
	"billingAddress":  textField("billing_address", func(o *models.Order, s string) { o.BillingAddress = s }),
	"city":            textField("city", func(o *models.Order, s string) { o.City = s }),
	"state":           textField("state", func(o *models.Order, s string) { o.State = s }),
	"pinselect":       textField("pinselect", func(o *models.Order, s string) { o.Pinselect = s }),
	"gstno":           textField("gstno", func(o *models.Order, s string) { o.Gstno = s }),
	"transporter":     textField("transporter", func(o *models.Order, s string) { o.Transporter = s }),
	"docketNo":        textField("docket_no", func(o *models.Order, s string) { o.DocketNo = s }),
	"invoiceNo":       textField("invoice_no", func(o *models.Order, s string) { o.InvoiceNo = s }),
	"remarks":         textField("remarks", func(o *models.Order, s string) { o.Remarks = s }),
}

// decode turns a raw payload value into the field's Go value. present is
// false when the value must be treated as absent: null, or a date that does
// not parse.
func (f editableField) decode(raw json.RawMessage) (v interface{}, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	switch f.kind {
	case kindText:
		var s FlexString
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, fmt.Errorf("must be a string")
		}
		return string(s), true, nil

	case kindNumber:
		n, ok, err := parseNumber(raw)
		if err != nil {
			return nil, false, fmt.Errorf("must be a number")
		}
		return n, ok, nil

	case kindInt:
		n, ok, err := parseNumber(raw)
		if err != nil || n != float64(int(n)) {
			return nil, false, fmt.Errorf("must be a whole number")
		}
		return int(n), ok, nil

	case kindDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, nil
		}
		t, ok := parseDate(s)
		if !ok {
			return nil, false, nil
		}
		return t, true, nil

	case kindUUID:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, fmt.Errorf("must be a user id")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return (*uuid.UUID)(nil), true, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false, fmt.Errorf("must be a user id")
		}
		return &id, true, nil
	}
	return nil, false, fmt.Errorf("unsupported field")
}

// columnValue converts a decoded value into what the update map stores.
func columnValue(v interface{}) interface{} {
	if id, ok := v.(*uuid.UUID); ok {
		if id == nil {
			return nil
		}
		return *id
	}
	return v
}
