package workflow

import (
	"sort"

	"order_manager/internal/models"
)

// Queue names accepted by Named.
const (
	QueueVerification        = "verification"
	QueueProductionApproval  = "production-approval"
	QueueProduction          = "production"
	QueueDashboardProduction = "dashboard-production"
	QueueFinishedGoods       = "finished-goods"
	QueueInstallation        = "installation"
	QueueBilling             = "billing"
	QueueAccounts            = "accounts"
	QueueCompleted           = "completed"
)

func standardLocations() []interface{} {
	out := make([]interface{}, len(models.StandardDispatchLocations))
	for i, l := range models.StandardDispatchLocations {
		out[i] = l
	}
	return out
}

// NotCancelled drops cancelled orders.
func NotCancelled() Expr {
	return Ne("sostatus", models.SOStatusCancelled)
}

// VerificationOrders are new orders waiting for accounts to check the payment terms.
func VerificationOrders() Expr {
	return Eq("sostatus", models.SOStatusPending)
}

// ProductionApprovalOrders are the orders a production approver can release.
// Three independent paths lead here: accounts already approved the order,
// a credit order skips accounts, or a demo order skips accounts.
func ProductionApprovalOrders() Expr {
	return Or(
		Eq("sostatus", models.SOStatusAccountsApproved),
		And(
			Eq("sostatus", models.SOStatusPending),
			Eq("payment_terms", models.PaymentTermsCredit),
		),
		And(
			Eq("sostatus", models.SOStatusPending),
			Eq("order_type", models.OrderTypeDemo),
		),
	)
}

// ProductionOrders are approved orders that still need building at Morinda.
// Morinda is selected by excluding the standard locations.
func ProductionOrders() Expr {
	return And(
		Eq("sostatus", models.SOStatusApproved),
		NotIn("dispatch_from", standardLocations()...),
		Ne("fulfilling_status", models.FulfillingFulfilled),
	)
}

// DashboardProductionOrders backs the dashboard "in production" tile. Unlike
// ProductionOrders it also leaves out partially dispatched orders.
func DashboardProductionOrders() Expr {
	return And(
		Eq("sostatus", models.SOStatusApproved),
		NotIn("dispatch_from", standardLocations()...),
		NotIn("fulfilling_status", models.FulfillingFulfilled, models.FulfillingPartialDispatch),
	)
}

// FinishedGoodsOrders are fulfilled, approved orders that have not been delivered yet.
func FinishedGoodsOrders() Expr {
	return And(
		Eq("sostatus", models.SOStatusApproved),
		Eq("fulfilling_status", models.FulfillingFulfilled),
		Ne("dispatch_status", models.DispatchDelivered),
	)
}

// InstallationOrders are delivered orders with installation in scope that is not done yet.
func InstallationOrders() Expr {
	return And(
		Eq("dispatch_status", models.DispatchDelivered),
		Ne("install_charges_status", models.InstallChargesNotInScope),
		Ne("installation_status", models.InstallationCompleted),
	)
}

// BillingOrders are shipped orders whose invoice is still open.
func BillingOrders() Expr {
	return And(
		NotCancelled(),
		In("dispatch_status", models.DispatchDispatched, models.DispatchDelivered),
		Ne("bill_status", models.BillComplete),
	)
}

// AccountsOrders are orders waiting on payment once installation no longer blocks it.
func AccountsOrders() Expr {
	return And(
		Ne("payment_received", models.PaymentReceived),
		NotCancelled(),
		Or(
			Eq("installation_status", models.InstallationCompleted),
			Eq("install_charges_status", models.InstallChargesNotInScope),
		),
	)
}

// CompletedOrders are billed and paid.
func CompletedOrders() Expr {
	return And(
		Eq("bill_status", models.BillComplete),
		Eq("payment_received", models.PaymentReceived),
	)
}

var named = map[string]func() Expr{
	QueueVerification:        VerificationOrders,
	QueueProductionApproval:  ProductionApprovalOrders,
	QueueProduction:          ProductionOrders,
	QueueDashboardProduction: DashboardProductionOrders,
	QueueFinishedGoods:       FinishedGoodsOrders,
	QueueInstallation:        InstallationOrders,
	QueueBilling:             BillingOrders,
	QueueAccounts:            AccountsOrders,
	QueueCompleted:           CompletedOrders,
}

// Named returns the filter for a queue name.
func Named(name string) (Expr, bool) {
	f, ok := named[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names lists every queue name in sorted order.
func Names() []string {
	out := make([]string, 0, len(named))
	for n := range named {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
