package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAILER_FROM)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *Mailer) SendPaymentReceipt(toEmail, toName, planName, amount, paidThrough string) error {
	subject := "Your membership payment receipt"
	text := fmt.Sprintf("Thanks for your payment of %s for %s. Your membership is paid through %s.",
		amount, planName, paidThrough)
	html := fmt.Sprintf(`<p>Thanks for your payment of <b>%s</b> for <b>%s</b>.</p><p>Your membership is paid through <b>%s</b>.</p>`,
		amount, planName, paidThrough)
	_, err := m.Send(toEmail, toName, subject, text, html)
	return err
}

func (m *Mailer) SendDowngradeNotice(toEmail, toName, prevPlanName string) error {
	subject := "Your membership has changed"
	text := fmt.Sprintf("Your %s membership has lapsed and your account moved to the free rewards tier. Renew any time at the front desk.", prevPlanName)
	html := fmt.Sprintf(`<p>Your <b>%s</b> membership has lapsed and your account moved to the free rewards tier.</p><p>Renew any time at the front desk.</p>`, prevPlanName)
	_, err := m.Send(toEmail, toName, subject, text, html)
	return err
}

var _ Service = (*Mailer)(nil)
