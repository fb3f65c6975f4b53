package mailer

import (
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

// DevMailer prints mail to the logs instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev-mail", nil
}

func (d *DevMailer) SendPaymentReceipt(toEmail, toName, planName, amount, paidThrough string) error {
	logger.Info("[DEV MAIL] Payment receipt",
		"to", toEmail,
		"name", toName,
		"plan", planName,
		"amount", amount,
		"paid_through", paidThrough,
	)
	return nil
}

func (d *DevMailer) SendDowngradeNotice(toEmail, toName, prevPlanName string) error {
	logger.Info("[DEV MAIL] Downgrade notice",
		"to", toEmail,
		"name", toName,
		"prev_plan", prevPlanName,
	)
	return nil
}

var _ Service = (*DevMailer)(nil)
