package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID      uuid.UUID `json:"_id" gorm:"type:uuid;primaryKey"`
	OrderID string    `json:"orderId" gorm:"uniqueIndex;not null"`
	SODate  time.Time `json:"soDate" gorm:"not null"`

	CreatedBy  uuid.UUID  `json:"createdBy" gorm:"type:uuid;not null;index"`
	Owner      *User      `json:"owner,omitempty" gorm:"foreignKey:CreatedBy"`
	AssignedTo *uuid.UUID `json:"assignedTo" gorm:"type:uuid;index"`
	Assignee   *User      `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`

	OrderType    string `json:"orderType" gorm:"not null;default:'B2C'" validate:"oneof=B2B B2C B2G Demo"`
	Company      string `json:"company" gorm:"not null;default:''"`
	DispatchFrom string `json:"dispatchFrom" gorm:"not null;default:''" validate:"omitempty,oneof=Patna Bareilly Ranchi Lucknow Delhi Jaipur Rajasthan Morinda"`

	Products             Products `json:"products" gorm:"type:jsonb;not null" validate:"required,min=1,dive"`
	Total                float64  `json:"total" validate:"gte=0"`
	PaymentCollected     float64  `json:"paymentCollected" validate:"gte=0"`
	PaymentDue           float64  `json:"paymentDue"`
	PaymentMethod        string   `json:"paymentMethod" gorm:"not null;default:''"`
	PaymentTerms         string   `json:"paymentTerms" gorm:"not null;default:''"`
	CreditDays           int      `json:"creditDays" validate:"gte=0"`
	Freightcs            float64  `json:"freightcs" validate:"gte=0"`
	Installation         float64  `json:"installation" validate:"gte=0"`
	InstallChargesStatus string   `json:"installchargesstatus" gorm:"not null;default:'To Pay'" validate:"omitempty,oneof='To Pay' 'Including' 'Not in Scope'"`
	GemOrderNumber       string   `json:"gemOrderNumber" gorm:"not null;default:''"`

	DemoDate *time.Time `json:"demoDate"`

	Sostatus           string `json:"sostatus" gorm:"not null;default:'Pending for Approval'" validate:"oneof='Pending for Approval' 'Accounts Approved' 'Approved' 'Order on Hold Due to Low Price' 'Order Cancelled'"`
	FulfillingStatus   string `json:"fulfillingStatus" gorm:"not null;default:'Not Fulfilled'" validate:"oneof='Not Fulfilled' 'Pending' 'Under Process' 'Partial Dispatch' 'Fulfilled'"`
	CompletionStatus   string `json:"completionStatus" gorm:"not null;default:'In Progress'" validate:"oneof='In Progress' 'Complete'"`
	DispatchStatus     string `json:"dispatchStatus" gorm:"not null;default:'Not Dispatched'" validate:"oneof='Not Dispatched' 'Docket Awaited Dispatched' 'Dispatched' 'Delivered'"`
	InstallationStatus string `json:"installationStatus" gorm:"not null;default:'Pending'" validate:"oneof='Pending' 'In Progress' 'Completed' 'Failed' 'Hold'"`
	BillStatus         string `json:"billStatus" gorm:"not null;default:'Pending'" validate:"oneof='Pending' 'Under Billing' 'Billing Complete'"`
	PaymentReceived    string `json:"paymentReceived" gorm:"not null;default:'Not Received'" validate:"oneof='Not Received' 'Received'"`
	StockStatus        string `json:"stockStatus" gorm:"not null;default:'In Stock'" validate:"oneof='In Stock' 'Not in Stock'"`

	ApprovalTimestamp     *time.Time `json:"approvalTimestamp"`
	ProductsEditTimestamp *time.Time `json:"productsEditTimestamp"`
	FulfillmentDate       *time.Time `json:"fulfillmentDate"`
	DispatchDate          *time.Time `json:"dispatchDate"`
	ReceiptDate           *time.Time `json:"receiptDate"`
	InvoiceDate           *time.Time `json:"invoiceDate"`

	Customername    string  `json:"customername" gorm:"not null;default:''"`
	Name            string  `json:"name" gorm:"not null;default:''"`
	ContactNo       string  `json:"contactNo" gorm:"not null;default:''"`
	AlterNo         string  `json:"alterno" gorm:"not null;default:''"`
	CustomerEmail   string  `json:"customerEmail" gorm:"not null;default:''" validate:"omitempty,email"`
	ShippingAddress string  `json:"shippingAddress" gorm:"not null;default:''"`
	BillingAddress  string  `json:"billingAddress" gorm:"not null;default:''"`
	City            string  `json:"city" gorm:"not null;default:''"`
	State           string  `json:"state" gorm:"not null;default:''"`
	Pinselect       string  `json:"pinselect" gorm:"not null;default:''"`
	Gstno           string  `json:"gstno" gorm:"not null;default:''"`
	Transporter     string  `json:"transporter" gorm:"not null;default:''"`
	DocketNo        string  `json:"docketNo" gorm:"not null;default:''"`
	InvoiceNo       string  `json:"invoiceNo" gorm:"not null;default:''"`
	ActualFreight   float64 `json:"actualFreight" validate:"gte=0"`
	Remarks         string  `json:"remarks" gorm:"type:text;not null;default:''"`
	PoFilePath      string  `json:"poFilePath" gorm:"not null;default:''"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Validate runs the struct-tag rules checked before every write.
func (o *Order) Validate() error {
	return validate.Struct(o)
}

const (
	OrderTypeB2B  = "B2B"
	OrderTypeB2C  = "B2C"
	OrderTypeB2G  = "B2G"
	OrderTypeDemo = "Demo"
)

// Morinda is the dispatch origin that needs an internal fulfillment step.
const Morinda = "Morinda"

// StandardDispatchLocations ship from stock; orders from these are fulfilled on creation.
var StandardDispatchLocations = []string{
	"Patna",
	"Bareilly",
	"Ranchi",
	"Lucknow",
	"Delhi",
	"Jaipur",
	"Rajasthan",
}

// IsDispatchLocation reports whether loc is one of the eight accepted origins.
func IsDispatchLocation(loc string) bool {
	if loc == Morinda {
		return true
	}
	for _, l := range StandardDispatchLocations {
		if l == loc {
			return true
		}
	}
	return false
}

const (
	SOStatusPending          = "Pending for Approval"
	SOStatusAccountsApproved = "Accounts Approved"
	SOStatusApproved         = "Approved"
	SOStatusOnHold           = "Order on Hold Due to Low Price"
	SOStatusCancelled        = "Order Cancelled"
)

const (
	FulfillingNotFulfilled    = "Not Fulfilled"
	FulfillingPending         = "Pending"
	FulfillingUnderProcess    = "Under Process"
	FulfillingPartialDispatch = "Partial Dispatch"
	FulfillingFulfilled       = "Fulfilled"
)

const (
	CompletionInProgress = "In Progress"
	CompletionComplete   = "Complete"
)

const (
	DispatchNotDispatched = "Not Dispatched"
	DispatchDocketAwaited = "Docket Awaited Dispatched"
	DispatchDispatched    = "Dispatched"
	DispatchDelivered     = "Delivered"
)

const (
	InstallationPending    = "Pending"
	InstallationInProgress = "In Progress"
	InstallationCompleted  = "Completed"
	InstallationFailed     = "Failed"
	InstallationHold       = "Hold"
)

const (
	InstallChargesToPay      = "To Pay"
	InstallChargesIncluding  = "Including"
	InstallChargesNotInScope = "Not in Scope"
)

const (
	BillPending      = "Pending"
	BillUnderBilling = "Under Billing"
	BillComplete     = "Billing Complete"
)

const (
	PaymentNotReceived = "Not Received"
	PaymentReceived    = "Received"
)

const (
	StockInStock    = "In Stock"
	StockNotInStock = "Not in Stock"
)

const PaymentTermsCredit = "Credit"
