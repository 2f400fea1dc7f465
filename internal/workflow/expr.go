// Package workflow holds the named order filters used by each stage queue.
//
// A filter is an Expr: it renders into a gorm WHERE clause and can also be
// evaluated against an in-memory order, so the boolean structure of every
// queue is testable without a database.
package workflow

import (
	"fmt"

	"order_manager/internal/models"

	"gorm.io/gorm/clause"
)

type Expr interface {
	clause.Expression
	Match(o *models.Order) bool
}

// Columns that filters may reference, mapped to their in-memory value.
var columns = map[string]func(o *models.Order) string{
	"sostatus":               func(o *models.Order) string { return o.Sostatus },
	"fulfilling_status":      func(o *models.Order) string { return o.FulfillingStatus },
	"completion_status":      func(o *models.Order) string { return o.CompletionStatus },
	"dispatch_status":        func(o *models.Order) string { return o.DispatchStatus },
	"installation_status":    func(o *models.Order) string { return o.InstallationStatus },
	"install_charges_status": func(o *models.Order) string { return o.InstallChargesStatus },
	"bill_status":            func(o *models.Order) string { return o.BillStatus },
	"payment_received":       func(o *models.Order) string { return o.PaymentReceived },
	"stock_status":           func(o *models.Order) string { return o.StockStatus },
	"dispatch_from":          func(o *models.Order) string { return o.DispatchFrom },
	"order_type":             func(o *models.Order) string { return o.OrderType },
	"payment_terms":          func(o *models.Order) string { return o.PaymentTerms },
	"created_by":             func(o *models.Order) string { return o.CreatedBy.String() },
	"assigned_to": func(o *models.Order) string {
		if o.AssignedTo == nil {
			return ""
		}
		return o.AssignedTo.String()
	},
}

func valueOf(o *models.Order, column string) string {
	get, ok := columns[column]
	if !ok {
		panic(fmt.Sprintf("workflow: unknown column %q", column))
	}
	return get(o)
}

func text(v interface{}) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

type eq struct {
	column string
	value  interface{}
}

// Eq matches column = value.
func Eq(column string, value interface{}) Expr { return eq{column, value} }

func (e eq) Build(b clause.Builder) {
	clause.Eq{Column: clause.Column{Name: e.column}, Value: e.value}.Build(b)
}

func (e eq) Match(o *models.Order) bool { return valueOf(o, e.column) == text(e.value) }

type ne struct {
	column string
	value  interface{}
}

// Ne matches column <> value.
func Ne(column string, value interface{}) Expr { return ne{column, value} }

func (e ne) Build(b clause.Builder) {
	clause.Neq{Column: clause.Column{Name: e.column}, Value: e.value}.Build(b)
}

func (e ne) Match(o *models.Order) bool { return valueOf(o, e.column) != text(e.value) }

type in struct {
	column string
	values []interface{}
	negate bool
}

// In matches column IN values. An empty list matches nothing.
func In(column string, values ...interface{}) Expr { return in{column: column, values: values} }

// NotIn matches column NOT IN values. An empty list matches everything.
func NotIn(column string, values ...interface{}) Expr {
	return in{column: column, values: values, negate: true}
}

func (e in) Build(b clause.Builder) {
	c := clause.IN{Column: clause.Column{Name: e.column}, Values: e.values}
	if e.negate {
		c.NegationBuild(b)
		return
	}
	c.Build(b)
}

func (e in) Match(o *models.Order) bool {
	v := valueOf(o, e.column)
	for _, want := range e.values {
		if v == text(want) {
			return !e.negate
		}
	}
	return e.negate
}

type and []Expr

// And matches when every operand matches.
func And(exprs ...Expr) Expr { return and(exprs) }

func (a and) Build(b clause.Builder) { group(b, a, " AND ", "TRUE") }

func (a and) Match(o *models.Order) bool {
	for _, e := range a {
		if !e.Match(o) {
			return false
		}
	}
	return true
}

type or []Expr

// Or matches when any operand matches.
func Or(exprs ...Expr) Expr { return or(exprs) }

func (x or) Build(b clause.Builder) { group(b, x, " OR ", "FALSE") }

func (x or) Match(o *models.Order) bool {
	for _, e := range x {
		if e.Match(o) {
			return true
		}
	}
	return false
}

// group joins exprs with sep. Two or more operands are always parenthesised,
// so nesting never depends on operator precedence.
func group(b clause.Builder, exprs []Expr, sep, empty string) {
	switch len(exprs) {
	case 0:
		b.WriteString(empty)
	case 1:
		exprs[0].Build(b)
	default:
		b.WriteByte('(')
		for i, e := range exprs {
			if i > 0 {
				b.WriteString(sep)
			}
			e.Build(b)
		}
		b.WriteByte(')')
	}
}

// All matches every order.
func All() Expr { return and(nil) }

// Filter keeps the orders that match e.
func Filter(orders []models.Order, e Expr) []models.Order {
	var out []models.Order
	for i := range orders {
		if e.Match(&orders[i]) {
			out = append(out, orders[i])
		}
	}
	return out
}
