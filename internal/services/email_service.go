package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"order_manager/internal/models"
	"order_manager/pkg/mailer"
)

type Mailer interface {
	SendHTML(ctx context.Context, to, subject, body string) (mailer.SendResult, error)
}

// EmailService sends customer-facing order mail.
type EmailService interface {
	SendApproval(ctx context.Context, order *models.Order) error
	SendDispatchUpdate(ctx context.Context, order *models.Order) error
}

var (
	approvalTmpl = template.Must(template.New("approval").Parse(
		`<p>Dear {{.Customername}},</p>
<p>Your order <b>{{.OrderID}}</b> has been approved.</p>
<table>{{range .Products}}<tr><td>{{.ProductType}}</td><td>{{.Qty}}</td></tr>{{end}}</table>
<p>Order total: {{printf "%.2f" .Total}}</p>`))

	dispatchTmpl = template.Must(template.New("dispatch").Parse(
		`<p>Dear {{.Customername}},</p>
<p>The status of your order <b>{{.OrderID}}</b> is now <b>{{.DispatchStatus}}</b>.</p>
{{if .Transporter}}<p>Transporter: {{.Transporter}}{{if .DocketNo}}, docket {{.DocketNo}}{{end}}</p>{{end}}`))
)

type emailService struct {
	mailer Mailer
}

// NewEmailService returns a service that silently does nothing when m is nil.
func NewEmailService(m Mailer) EmailService {
	return &emailService{mailer: m}
}

func (s *emailService) SendApproval(ctx context.Context, order *models.Order) error {
	return s.send(ctx, order, fmt.Sprintf("Order %s approved", order.OrderID), approvalTmpl)
}

func (s *emailService) SendDispatchUpdate(ctx context.Context, order *models.Order) error {
	return s.send(ctx, order, fmt.Sprintf("Order %s: %s", order.OrderID, order.DispatchStatus), dispatchTmpl)
}

func (s *emailService) send(ctx context.Context, order *models.Order, subject string, tmpl *template.Template) error {
	if s.mailer == nil || order.CustomerEmail == "" {
		return nil
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, order); err != nil {
		return fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}
	_, err := s.mailer.SendHTML(ctx, order.CustomerEmail, subject, body.String())
	return err
}
