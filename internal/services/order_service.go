package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"order_manager/internal/apperrors"
	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sideEffectTimeout = 30 * time.Second

type OrderService interface {
	CreateOrder(ctx context.Context, actor *models.User, in CreateOrderInput, poFilePath string) (*models.Order, error)
	EditOrder(ctx context.Context, actor *models.User, id uuid.UUID, payload map[string]json.RawMessage) (*models.Order, error)
	DeleteOrder(ctx context.Context, actor *models.User, id uuid.UUID) error
	GetOrder(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, actor *models.User) ([]models.Order, error)
	WorkflowOrders(ctx context.Context, actor *models.User, queue string) ([]models.Order, error)
	DashboardCounts(ctx context.Context, actor *models.User) (map[string]int64, error)
}

type orderService struct {
	store  repository.Store
	scoper Scoper
	ids    OrderIDGenerator
	emails EmailService
	fanout *Fanout
	log    *zap.Logger
	now    func() time.Time
	run    func(func())
}

type OrderServiceOption func(*orderService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *orderService) { s.now = now }
}

// WithRunner replaces the goroutine used for email side effects.
func WithRunner(run func(func())) OrderServiceOption {
	return func(s *orderService) { s.run = run }
}

func NewOrderService(
	store repository.Store,
	scoper Scoper,
	ids OrderIDGenerator,
	emails EmailService,
	fanout *Fanout,
	log *zap.Logger,
	opts ...OrderServiceOption,
) OrderService {
	s := &orderService{
		store:  store,
		scoper: scoper,
		ids:    ids,
		emails: emails,
		fanout: fanout,
		log:    log,
		now:    time.Now,
		run:    func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderService) CreateOrder(ctx context.Context, actor *models.User, in CreateOrderInput, poFilePath string) (*models.Order, error) {
	items, err := ParseProducts(in.Products)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order, err := buildOrder(in, items, actor, now)
	if err != nil {
		return nil, err
	}
	order.PoFilePath = poFilePath

	if order.OrderID, err = s.ids.Next(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	var note *models.Notification
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		note = newNotification("created", actor, order, now)
		return tx.Notifications().Create(ctx, note)
	})
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}

	created := s.reload(ctx, order)
	s.log.Info("order created", zap.String("order_id", created.OrderID), zap.String("actor", actor.Username))
	s.fanout.OrderChanged(ctx, ChangeCreate, created, note)
	return created, nil
}

// buildOrder validates a create payload and derives every computed field.
// It does not assign the human order id.
func buildOrder(in CreateOrderInput, items []ProductInput, actor *models.User, now time.Time) (*models.Order, error) {
	orderType := strings.TrimSpace(in.OrderType)
	if orderType == "" {
		orderType = models.OrderTypeB2C
	}
	dispatchFrom := strings.TrimSpace(in.DispatchFrom)

	var fields []apperrors.FieldError
	demoDate, hasDemoDate := parseDate(in.DemoDate)
	switch orderType {
	case models.OrderTypeB2G:
		if strings.TrimSpace(string(in.GemOrderNumber)) == "" {
			fields = append(fields, apperrors.FieldError{Field: "gemOrderNumber", Message: "is required for B2G orders"})
		}
	case models.OrderTypeDemo:
		if !hasDemoDate {
			fields = append(fields, apperrors.FieldError{Field: "demoDate", Message: "is required for Demo orders"})
		}
	default:
		if strings.TrimSpace(in.PaymentTerms) == "" {
			fields = append(fields, apperrors.FieldError{Field: "paymentTerms", Message: "is required"})
		}
	}
	if dispatchFrom != "" && !models.IsDispatchLocation(dispatchFrom) {
		fields = append(fields, apperrors.FieldError{Field: "dispatchFrom", Message: "is not a known dispatch location"})
	}

	var assignedTo *uuid.UUID
	if s := strings.TrimSpace(in.AssignedTo); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			fields = append(fields, apperrors.FieldError{Field: "assignedTo", Message: "must be a user id"})
		} else {
			assignedTo = &id
		}
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationFields("Validation failed", fields)
	}

	products, err := NormalizeProducts(items, orderType, false)
	if err != nil {
		return nil, err
	}

	freight := in.Freightcs.Or(0)
	installation := in.Installation.Or(0)
	collected := in.PaymentCollected.Or(0)
	total := in.Total.Or(ComputeTotal(products, freight, installation))
	due := in.PaymentDue.Or(PaymentDue(total, collected))

	soDate, ok := parseDate(in.SODate)
	if !ok {
		soDate = now
	}

	order := &models.Order{
		SODate:               soDate,
		CreatedBy:            actor.ID,
		AssignedTo:           assignedTo,
		OrderType:            orderType,
		Company:              strings.TrimSpace(in.Company),
		DispatchFrom:         dispatchFrom,
		Products:             products,
		Total:                total,
		PaymentCollected:     collected,
		PaymentDue:           due,
		PaymentMethod:        strings.TrimSpace(in.PaymentMethod),
		PaymentTerms:         strings.TrimSpace(in.PaymentTerms),
		CreditDays:           int(in.CreditDays.Or(0)),
		Freightcs:            freight,
		Installation:         installation,
		InstallChargesStatus: defaultString(in.InstallChargesStatus, models.InstallChargesToPay),
		GemOrderNumber:       strings.TrimSpace(string(in.GemOrderNumber)),
		Sostatus:             models.SOStatusPending,
		DispatchStatus:       models.DispatchNotDispatched,
		InstallationStatus:   models.InstallationPending,
		BillStatus:           models.BillPending,
		PaymentReceived:      models.PaymentNotReceived,
		StockStatus:          defaultString(in.StockStatus, models.StockInStock),
		Customername:         strings.TrimSpace(string(in.Customername)),
		Name:                 strings.TrimSpace(string(in.Name)),
		ContactNo:            strings.TrimSpace(string(in.ContactNo)),
		AlterNo:              strings.TrimSpace(string(in.AlterNo)),
		CustomerEmail:        strings.TrimSpace(string(in.CustomerEmail)),
		ShippingAddress:      strings.TrimSpace(string(in.ShippingAddress)),
		BillingAddress:       strings.TrimSpace(string(in.BillingAddress)),
		City:                 strings.TrimSpace(string(in.City)),
		State:                strings.TrimSpace(string(in.State)),
		Pinselect:            strings.TrimSpace(string(in.Pinselect)),
		Gstno:                strings.TrimSpace(string(in.Gstno)),
		Remarks:              string(in.Remarks),
	}
	if hasDemoDate {
		order.DemoDate = &demoDate
	}

	// Only Morinda builds in-house; everything else, and every demo, ships from stock.
	if orderType == models.OrderTypeDemo || dispatchFrom != models.Morinda {
		order.FulfillingStatus = models.FulfillingFulfilled
		order.CompletionStatus = models.CompletionComplete
		order.FulfillmentDate = &now
	} else {
		order.FulfillingStatus = models.FulfillingNotFulfilled
		order.CompletionStatus = models.CompletionInProgress
	}

	if err := order.Validate(); err != nil {
		return nil, apperrors.FromPersistence(err)
	}
	return order, nil
}

func defaultString(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// editPlan is the outcome of applying a payload to an existing order.
type editPlan struct {
	merged          models.Order
	updates         map[string]interface{}
	approvedNow     bool
	dispatchChanged bool
}

func (s *orderService) EditOrder(ctx context.Context, actor *models.User, id uuid.UUID, payload map[string]json.RawMessage) (*models.Order, error) {
	existing, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}
	if err := s.authorize(ctx, actor, existing); err != nil {
		return nil, err
	}

	now := s.now()
	plan, err := planEdit(existing, payload, now)
	if err != nil {
		return nil, err
	}

	var note *models.Notification
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().UpdateFields(ctx, id, plan.updates); err != nil {
			return err
		}
		note = newNotification("updated", actor, &plan.merged, now)
		return tx.Notifications().Create(ctx, note)
	})
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}

	updated := s.reload(ctx, &plan.merged)

	if plan.approvedNow && updated.CustomerEmail != "" {
		s.sideEffect(ctx, "approval email", updated, s.emails.SendApproval)
	}
	if plan.dispatchChanged && updated.CustomerEmail != "" {
		s.sideEffect(ctx, "dispatch email", updated, s.emails.SendDispatchUpdate)
	}

	s.fanout.OrderChanged(ctx, ChangeEdit, updated, note)
	return updated, nil
}

// planEdit applies the allow-listed fields of payload to a copy of existing
// and then enforces the transition rules. Every rule that stamps a time uses
// now, so fields set by one request share one timestamp.
func planEdit(existing *models.Order, payload map[string]json.RawMessage, now time.Time) (*editPlan, error) {
	merged := *existing
	merged.Owner, merged.Assignee = nil, nil
	updates := map[string]interface{}{}
	present := map[string]bool{}
	var fields []apperrors.FieldError

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		field, ok := editableFields[name]
		if !ok {
			continue
		}
		if field.kind == kindProducts {
			continue
		}
		v, ok, err := field.decode(payload[name])
		if err != nil {
			fields = append(fields, apperrors.FieldError{Field: name, Message: err.Error()})
			continue
		}
		if !ok {
			continue
		}
		if field.check != nil {
			if msg := field.check(v); msg != "" {
				fields = append(fields, apperrors.FieldError{Field: name, Message: msg})
				continue
			}
		}
		field.assign(&merged, v)
		updates[field.column] = columnValue(v)
		present[name] = true
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationFields("Validation failed", fields)
	}

	set := func(column string, v interface{}) { updates[column] = v }

	productsChanged := false
	if raw, ok := payload["products"]; ok {
		items, err := ParseProducts(raw)
		if err != nil {
			return nil, err
		}
		if items != nil {
			products, err := NormalizeProducts(items, merged.OrderType, true)
			if err != nil {
				return nil, err
			}
			if !ProductsEqual(products, existing.Products) {
				productsChanged = true
				merged.Products = products
				merged.ProductsEditTimestamp = &now
				set("products", products)
				set("products_edit_timestamp", now)
			}
		}
	}

	if productsChanged && !present["total"] {
		merged.Total = ComputeTotal(merged.Products, merged.Freightcs, merged.Installation)
		set("total", merged.Total)
	}
	if (productsChanged || present["total"] || present["paymentCollected"]) && !present["paymentDue"] {
		merged.PaymentDue = PaymentDue(merged.Total, merged.PaymentCollected)
		set("payment_due", merged.PaymentDue)
	}

	plan := &editPlan{}

	if present["sostatus"] && merged.Sostatus == models.SOStatusApproved && existing.Sostatus != models.SOStatusApproved {
		merged.ApprovalTimestamp = &now
		set("approval_timestamp", now)
		plan.approvedNow = true
	}

	if present["dispatchFrom"] && merged.DispatchFrom != existing.DispatchFrom {
		// A new origin decides fulfillment outright, whatever else was sent.
		if merged.DispatchFrom == models.Morinda {
			merged.FulfillingStatus = models.FulfillingPending
			merged.CompletionStatus = models.CompletionInProgress
		} else {
			merged.FulfillingStatus = models.FulfillingFulfilled
			merged.CompletionStatus = models.CompletionComplete
			merged.FulfillmentDate = &now
			set("fulfillment_date", now)
		}
		set("fulfilling_status", merged.FulfillingStatus)
		set("completion_status", merged.CompletionStatus)
	} else if present["fulfillingStatus"] && merged.FulfillingStatus == models.FulfillingFulfilled {
		merged.CompletionStatus = models.CompletionComplete
		set("completion_status", merged.CompletionStatus)
		if merged.FulfillmentDate == nil {
			merged.FulfillmentDate = &now
			set("fulfillment_date", now)
		}
	}

	if present["dispatchStatus"] {
		plan.dispatchChanged = merged.DispatchStatus != existing.DispatchStatus
		switch merged.DispatchStatus {
		case models.DispatchDispatched, models.DispatchDelivered:
			if merged.DispatchDate == nil {
				merged.DispatchDate = &now
				set("dispatch_date", now)
			}
		}
		if merged.DispatchStatus == models.DispatchDelivered && merged.ReceiptDate == nil {
			merged.ReceiptDate = &now
			set("receipt_date", now)
		}
	}

	if err := merged.Validate(); err != nil {
		return nil, apperrors.FromPersistence(err)
	}

	plan.merged = merged
	plan.updates = updates
	return plan, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, actor *models.User, id uuid.UUID) error {
	existing, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return apperrors.FromPersistence(err)
	}
	if !actor.IsAdmin() && existing.CreatedBy != actor.ID {
		return apperrors.Forbidden("Only the order creator or an admin can delete this order")
	}

	now := s.now()
	var note *models.Notification
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Delete(ctx, id); err != nil {
			return err
		}
		note = newNotification("deleted", actor, existing, now)
		return tx.Notifications().Create(ctx, note)
	})
	if err != nil {
		return apperrors.FromPersistence(err)
	}

	s.log.Info("order deleted", zap.String("order_id", existing.OrderID), zap.String("actor", actor.Username))
	s.fanout.OrderChanged(ctx, ChangeDelete, existing, note)
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor *models.User) ([]models.Order, error) {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	orders, err := s.store.Orders().Find(ctx, scope.OrderFilter(false))
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}
	return orders, nil
}

func (s *orderService) WorkflowOrders(ctx context.Context, actor *models.User, queue string) ([]models.Order, error) {
	expr, ok := workflow.Named(queue)
	if !ok {
		return nil, apperrors.NotFound("Unknown workflow queue")
	}
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	orders, err := s.store.Orders().Find(ctx, workflow.And(scope.OrderFilter(false), expr))
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}
	return orders, nil
}

// DashboardCounts counts the visible, non-cancelled orders overall and per
// workflow queue.
func (s *orderService) DashboardCounts(ctx context.Context, actor *models.User) (map[string]int64, error) {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	base := scope.OrderFilter(true)

	counts := make(map[string]int64)
	total, err := s.store.Orders().Count(ctx, base)
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}
	counts["total"] = total

	for _, name := range workflow.Names() {
		expr, _ := workflow.Named(name)
		n, err := s.store.Orders().Count(ctx, workflow.And(base, expr))
		if err != nil {
			return nil, apperrors.FromPersistence(err)
		}
		counts[name] = n
	}
	return counts, nil
}

// authorize refuses orders outside the actor's scope without saying whether
// they exist.
func (s *orderService) authorize(ctx context.Context, actor *models.User, order *models.Order) error {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !scope.Allows(order) {
		return apperrors.Forbidden("You do not have access to this order")
	}
	return nil
}

// reload fetches the stored order with owner and assignee. On failure the
// in-memory copy is returned; the write itself already succeeded.
func (s *orderService) reload(ctx context.Context, order *models.Order) *models.Order {
	fresh, err := s.store.Orders().GetByID(ctx, order.ID)
	if err != nil {
		s.log.Warn("failed to reload order", zap.String("id", order.ID.String()), zap.Error(err))
		return order
	}
	return fresh
}

// sideEffect runs a best-effort email send detached from the request.
func (s *orderService) sideEffect(ctx context.Context, what string, order *models.Order, send func(context.Context, *models.Order) error) {
	detached := context.WithoutCancel(ctx)
	s.run(func() {
		ctx, cancel := context.WithTimeout(detached, sideEffectTimeout)
		defer cancel()
		if err := send(ctx, order); err != nil {
			s.log.Warn(what+" failed", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	})
}
