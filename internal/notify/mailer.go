package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/lalamig/storefront/internal/config"
	"github.com/lalamig/storefront/internal/models"
)

// confirmationTmpl mirrors the storefront's order summary mail: an item
// table with quantities and peso prices, the total, date and status.
var confirmationTmpl = template.Must(template.New("order_confirmation").Parse(`
<h1>Thank you for your order!</h1>
<h2>Order Summary:</h2>
<table style="width:100%; border-collapse: collapse;">
	<tr style="background-color: #f2f2f2;">
		<th style="padding: 8px; border: 1px solid #ddd;">Item</th>
		<th style="padding: 8px; border: 1px solid #ddd;">Quantity</th>
		<th style="padding: 8px; border: 1px solid #ddd;">Price</th>
	</tr>
	{{range .Items}}
	<tr>
		<td style="padding: 8px; border: 1px solid #ddd;">{{.Name}}</td>
		<td style="padding: 8px; border: 1px solid #ddd;">{{.Quantity}}</td>
		<td style="padding: 8px; border: 1px solid #ddd;">&#8369;{{printf "%.2f" .UnitPrice}}</td>
	</tr>
	{{end}}
	<tr style="font-weight: bold;">
		<td colspan="2" style="padding: 8px; border: 1px solid #ddd;">Total</td>
		<td style="padding: 8px; border: 1px solid #ddd;">&#8369;{{printf "%.2f" .TotalAmount}}</td>
	</tr>
</table>
<p>Order Date: {{.CreatedAt.Format "Jan 2, 2006 3:04 PM"}}</p>
<p>Order Status: {{.Status}}</p>
<p>Thank you for shopping with Lalamig!</p>
`))

type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	port, err := strconv.Atoi(cfg.SMTP_PORT)
	if err != nil {
		return nil, fmt.Errorf("mailer: bad SMTP_PORT %q: %w", cfg.SMTP_PORT, err)
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTP_HOST, port, cfg.SMTP_USER, cfg.SMTP_PASSWORD),
		from:   cfg.EMAIL_FROM,
	}, nil
}

// OrderConfirmation sends the confirmation mail for a persisted order.
// Callers treat any error as log-only.
func (m *Mailer) OrderConfirmation(ctx context.Context, recipient string, order *models.Order) error {
	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, order); err != nil {
		return fmt.Errorf("mailer: render: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", "Order Confirmation - Lalamig")
	msg.SetBody("text/html", body.String())

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
