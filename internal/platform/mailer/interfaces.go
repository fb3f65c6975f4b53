package mailer

// Service sends transactional mail. Implementations: MailerSend, SMTP
// (Mailpit in dev), and a log-only dev mailer.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendPaymentReceipt(toEmail, toName, planName, amount, paidThrough string) error
	SendDowngradeNotice(toEmail, toName, prevPlanName string) error
}
