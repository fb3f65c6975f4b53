package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wwellington85/gym-membership-app-sub000/internal/platform/mailer"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/events"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

const queueGroup = "notify-workers"

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using environment")
	}
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	emailSvc := pickMailer(cfg)

	err = eventBus.QueueSubscribe(events.PaymentReconciled, queueGroup, func(msg *events.Message) {
		var ev events.PaymentReconciledEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Bad payment.reconciled payload", "error", err)
			return
		}
		amount := fmt.Sprintf("%.2f %s", float64(ev.AmountCents)/100, ev.Currency)
		if err := emailSvc.SendPaymentReceipt(ev.MemberEmail, ev.MemberName, ev.PlanCode, amount, ev.PaidThrough); err != nil {
			logger.Error("Failed to send receipt", "error", err, "reference", ev.Reference)
			return
		}
		logger.Info("Receipt sent", "reference", ev.Reference, "to", ev.MemberEmail)
	})
	if err != nil {
		logger.Error("Failed to subscribe", "subject", events.PaymentReconciled, "error", err)
		os.Exit(1)
	}

	err = eventBus.QueueSubscribe(events.MembershipDowngraded, queueGroup, func(msg *events.Message) {
		var ev events.MembershipDowngradedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Bad membership.downgraded payload", "error", err)
			return
		}
		if ev.MemberEmail == "" {
			return
		}
		if err := emailSvc.SendDowngradeNotice(ev.MemberEmail, ev.MemberName, ev.PrevPlanName); err != nil {
			logger.Error("Failed to send downgrade notice", "error", err, "member_id", ev.MemberID)
			return
		}
		logger.Info("Downgrade notice sent", "member_id", ev.MemberID, "to", ev.MemberEmail)
	})
	if err != nil {
		logger.Error("Failed to subscribe", "subject", events.MembershipDowngraded, "error", err)
		os.Exit(1)
	}

	err = eventBus.QueueSubscribe(events.NotifySend, queueGroup, func(msg *events.Message) {
		var ev events.NotificationEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Bad notify.send payload", "error", err)
			return
		}
		body := ev.Template
		if _, err := emailSvc.Send(ev.Recipient, "", ev.Subject, body, ""); err != nil {
			logger.Error("Failed to send notification", "error", err, "to", ev.Recipient)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe", "subject", events.NotifySend, "error", err)
		os.Exit(1)
	}

	logger.Info("Notify worker running", "queue", queueGroup)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down notify worker...")
}

// pickMailer chooses the delivery backend: dev logger, MailerSend when an API
// key is present, SMTP otherwise.
func pickMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailer(cfg.Email.MailerSendKey, "Resort Membership", cfg.Email.SMTPFrom)
	}
	return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
}
