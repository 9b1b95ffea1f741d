package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const whenLayout = "Mon, Jan 2, 2006 at 15:04"

// Lesson is the part of a booking shown in emails.
type Lesson struct {
	With       string
	Language   string
	LessonType string
	When       time.Time
	Reason     string
}

type Receipt struct {
	InvoiceNumber string
	AmountCents   int64
	Currency      string
	Method        string
}

type RefundOutcome struct {
	Approved    bool
	AmountCents int64
	Currency    string
	Notes       string
}

var layout = template.Must(template.New("layout").Funcs(template.FuncMap{
	"when":  func(t time.Time) string { return t.Format(whenLayout) },
	"money": FormatMoney,
}).Parse(`<html><body style="font-family:sans-serif">
<p>Hi {{.Name}},</p>
{{template "content" .}}
<p>- Tutorbook Team</p>
</body></html>`))

var templates = map[string]*template.Template{
	"booking_request": mustContent(`<p>{{.Data.With}} requested a {{.Data.LessonType}} {{.Data.Language}} lesson on {{when .Data.When}}.</p>
<p>Please confirm or reject it from your dashboard.</p>`),
	"booking_confirmed": mustContent(`<p>Your {{.Data.Language}} lesson with {{.Data.With}} on {{when .Data.When}} is confirmed.</p>`),
	"booking_cancelled": mustContent(`<p>Your {{.Data.Language}} lesson with {{.Data.With}} on {{when .Data.When}} was cancelled.</p>
{{if .Data.Reason}}<p>Reason: {{.Data.Reason}}</p>{{end}}`),
	"reminder": mustContent(`<p>Reminder: you have a {{.Data.Language}} lesson with {{.Data.With}} tomorrow, {{when .Data.When}}.</p>`),
	"payment_receipt": mustContent(`<p>We received your payment of {{money .Data.AmountCents .Data.Currency}} by {{.Data.Method}}.</p>
<p>Invoice: {{.Data.InvoiceNumber}}</p>`),
	"refund_outcome": mustContent(`{{if .Data.Approved}}<p>Your refund of {{money .Data.AmountCents .Data.Currency}} has been processed.</p>
{{else}}<p>Your refund request was declined.</p>{{end}}
{{if .Data.Notes}}<p>{{.Data.Notes}}</p>{{end}}`),
}

func mustContent(body string) *template.Template {
	t := template.Must(layout.Clone())
	return template.Must(t.New("content").Parse(body))
}

func render(name, recipient string, data interface{}) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", map[string]interface{}{"Name": recipient, "Data": data}); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Currencies whose smallest unit is the whole unit.
var zeroDecimal = map[string]bool{"IDR": true, "JPY": true, "KRW": true, "VND": true}

// FormatMoney renders an amount in minor units: "12.34 USD", "11290 IDR".
func FormatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if zeroDecimal[strings.ToUpper(currency)] {
		return fmt.Sprintf("%s%d %s", sign, minor, currency)
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

func (s *Service) sendTemplate(ctx context.Context, to, name, subject, tmpl string, data interface{}) error {
	html, err := render(tmpl, name, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, to, subject, html)
}

func (s *Service) SendBookingRequest(ctx context.Context, to, name string, l Lesson) error {
	return s.sendTemplate(ctx, to, name, "New booking request - "+l.Language, "booking_request", l)
}

func (s *Service) SendBookingConfirmation(ctx context.Context, to, name string, l Lesson) error {
	return s.sendTemplate(ctx, to, name, "Booking Confirmed - "+l.Language, "booking_confirmed", l)
}

func (s *Service) SendCancellation(ctx context.Context, to, name string, l Lesson) error {
	return s.sendTemplate(ctx, to, name, "Booking Cancelled - "+l.Language, "booking_cancelled", l)
}

func (s *Service) SendReminder(ctx context.Context, to, name string, l Lesson) error {
	return s.sendTemplate(ctx, to, name, "Reminder: "+l.Language+" lesson tomorrow", "reminder", l)
}

func (s *Service) SendPaymentReceipt(ctx context.Context, to, name string, r Receipt) error {
	return s.sendTemplate(ctx, to, name, "Payment received - "+r.InvoiceNumber, "payment_receipt", r)
}

func (s *Service) SendRefundOutcome(ctx context.Context, to, name string, r RefundOutcome) error {
	subject := "Refund declined"
	if r.Approved {
		subject = "Refund processed"
	}
	return s.sendTemplate(ctx, to, name, subject, "refund_outcome", r)
}
