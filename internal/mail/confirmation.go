package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/cimillas/ticket-site/internal/domain"
)

var confirmationSubject = template.Must(template.New("subject").Parse(
	`Your tickets for {{.EventName}}`))

var confirmationBody = template.Must(template.New("body").Funcs(template.FuncMap{
	"money": domain.FormatMoney,
}).Parse(`Hello {{.Name}},

thank you for your purchase. Your payment has been received.

Event:      {{.EventName}}
{{- if not .StartsAt.IsZero}}
Date:       {{.StartsAt.Format "Mon 2 Jan 2006, 15:04 MST"}}
{{- end}}
{{- if .Venue}}
Venue:      {{.Venue}}
{{- end}}
Tickets:    {{.Quantity}}
Unit price: {{money .UnitPrice .Currency}}
Total:      {{money .Amount .Currency}}

Order reference: {{.OrderID}}

See you there!
`))

// ConfirmationNotifier emails the buyer once their order is paid.
type ConfirmationNotifier struct {
	sender Sender
}

func NewConfirmationNotifier(sender Sender) *ConfirmationNotifier {
	return &ConfirmationNotifier{sender: sender}
}

func (n *ConfirmationNotifier) NotifyOrderPaid(ctx context.Context, order domain.Order, event domain.Event) error {
	msg, err := RenderConfirmation(order, event)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

// RenderConfirmation builds the confirmation message for a paid order.
func RenderConfirmation(order domain.Order, event domain.Event) (Message, error) {
	name := event.Name
	if name == "" {
		name = order.EventID
	}
	data := map[string]any{
		"OrderID":   order.ID,
		"Name":      order.Name,
		"EventName": name,
		"StartsAt":  event.StartsAt,
		"Venue":     event.Venue,
		"Quantity":  order.Quantity,
		"UnitPrice": order.UnitPrice,
		"Amount":    order.Amount,
		"Currency":  order.Currency,
	}

	var subject, body bytes.Buffer
	if err := confirmationSubject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := confirmationBody.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{
		To:      order.Email,
		Subject: subject.String(),
		Body:    body.String(),
	}, nil
}
