package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"sync"
)

// DroppedItem is one line of a price drop email
type DroppedItem struct {
	Title       string
	Image       string
	Link        string
	Price       float64
	TargetPrice float64
}

// Batch collects dropped items per recipient during a sweep. Safe for concurrent use.
type Batch struct {
	mu    sync.Mutex
	order []string
	items map[string][]DroppedItem
}

func NewBatch() *Batch {
	return &Batch{items: make(map[string][]DroppedItem)}
}

// Add appends an item to the recipient's email
func (b *Batch) Add(email string, item DroppedItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.items[email]; !ok {
		b.order = append(b.order, email)
	}
	b.items[email] = append(b.items[email], item)
}

// Recipients returns the number of distinct recipients
func (b *Batch) Recipients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Items returns a copy of the items queued for one recipient
func (b *Batch) Items(email string) []DroppedItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DroppedItem(nil), b.items[email]...)
}

// SendReport counts delivered, failed and skipped messages.
// Skipped messages were never attempted because mail is not configured.
type SendReport struct {
	Sent    int
	Failed  int
	Skipped int
}

// MailBatcher sends one message per recipient in a batch
type MailBatcher struct {
	mailer Mailer
}

func NewMailBatcher(mailer Mailer) *MailBatcher {
	return &MailBatcher{mailer: mailer}
}

// Send mails every recipient. A failed recipient is logged and counted; the rest still go out.
func (m *MailBatcher) Send(ctx context.Context, batch *Batch) SendReport {
	var report SendReport

	batch.mu.Lock()
	recipients := append([]string(nil), batch.order...)
	batch.mu.Unlock()

	for _, email := range recipients {
		if ctx.Err() != nil {
			report.Failed += len(recipients) - report.Sent - report.Failed - report.Skipped
			break
		}

		items := batch.Items(email)
		body, err := renderDropEmail(items)
		if err != nil {
			log.Printf("❌ Failed to render email for %s: %v", email, err)
			report.Failed++
			continue
		}

		err = m.mailer.Send(ctx, email, dropSubject(len(items)), body)
		if errors.Is(err, ErrMailDisabled) {
			report.Skipped++
			continue
		}
		if err != nil {
			log.Printf("❌ Email sending error for %s: %v", email, err)
			report.Failed++
			continue
		}

		log.Printf("📧 Email sent to %s (%d items)", email, len(items))
		report.Sent++
	}

	return report
}

func dropSubject(n int) string {
	return fmt.Sprintf("🔥 %d Price Drop Alert(s)! — ValueScout", n)
}

var dropEmailTemplate = template.Must(template.New("drop").Funcs(template.FuncMap{
	"rupees": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
}).Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="background: #eaf6f2; padding: 20px; border-radius: 8px; text-align: center;">
        <h1 style="color: #1f2937; margin: 0;">📉 Price Drop Alert!</h1>
        <p style="margin: 0; color: #4b5563;">The following items dropped in price</p>
      </div>
      {{range .}}
      <div style="margin: 20px 0; padding: 15px; background: #f9f9f9; border-radius: 8px;">
        {{if .Image}}<img src="{{.Image}}" width="140" style="border-radius: 8px; max-height: 140px;"><br>{{end}}
        <b style="font-size: 16px;">{{.Title}}</b>
        <p style="margin: 5px 0;"><strong>Current Price:</strong> {{rupees .Price}}</p>
        <p style="margin: 5px 0;"><strong>Your Target:</strong> {{rupees .TargetPrice}}</p>
        {{if .Link}}<a href="{{.Link}}" style="color: #10b981; font-weight: bold;">View Product →</a>{{end}}
      </div>
      {{end}}
      <p style="text-align: center; color: #6b7280; font-size: 12px;">ValueScout - Shop Smarter</p>
    </div>
  </body>
</html>
`))

func renderDropEmail(items []DroppedItem) (string, error) {
	var buf bytes.Buffer
	if err := dropEmailTemplate.Execute(&buf, items); err != nil {
		return "", err
	}
	return buf.String(), nil
}
