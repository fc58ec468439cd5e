package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"salon-service/config"
	"salon-service/internal/models"
	"salon-service/internal/util"

	"go.uber.org/zap"
)

// Mailer sends customer notification emails. Sends are best effort; the
// calling operation has already committed and must not fail because an
// email did not go out.
type Mailer interface {
	SendOrderPlaced(to string, order *models.Order, items []models.OrderItem) error
	SendOrderConfirmed(to string, order *models.Order) error
	SendBookingPlaced(to string, booking *models.Booking) error
	SendBookingConfirmed(to string, booking *models.Booking) error
}

// SMTPMailer delivers mail through a plain SMTP relay
type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer from config
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:   cfg.Host + ":" + cfg.Port,
		auth:   auth,
		from:   cfg.From,
		logger: logger,
	}
}

func (m *SMTPMailer) send(template, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
	if err != nil {
		util.EmailsSentTotal.WithLabelValues(template, "error").Inc()
		m.logger.Warn("failed to send email",
			zap.String("template", template),
			zap.String("to", to),
			zap.Error(err))
		return err
	}
	util.EmailsSentTotal.WithLabelValues(template, "success").Inc()
	return nil
}

// SendOrderPlaced notifies a customer that their payment went through
func (m *SMTPMailer) SendOrderPlaced(to string, order *models.Order, items []models.OrderItem) error {
	var lines strings.Builder
	for _, item := range items {
		fmt.Fprintf(&lines, "  variant #%d x%d @ %s\n",
			item.VariantID, item.Quantity, item.PriceAtOrder.StringFixed(2))
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nThanks for your order #%d. We have received your payment of %s.\n\nItems:\n%s\nWe will let you know when it ships.\n",
		order.FullName, order.ID, models.OrderTotalPrice(items).StringFixed(2), lines.String())
	return m.send("order_placed", to, fmt.Sprintf("Order #%d received", order.ID), body)
}

// SendOrderConfirmed notifies a customer that their order is being
// processed
func (m *SMTPMailer) SendOrderConfirmed(to string, order *models.Order) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour order #%d has been confirmed and is being prepared.\n",
		order.FullName, order.ID)
	return m.send("order_confirmed", to, fmt.Sprintf("Order #%d confirmed", order.ID), body)
}

// SendBookingPlaced notifies a customer that their booking payment went
// through
func (m *SMTPMailer) SendBookingPlaced(to string, booking *models.Booking) error {
	body := fmt.Sprintf(
		"Your booking #%d for %s at %s is awaiting confirmation. Amount paid: %s.\n",
		booking.ID, booking.Date.Format("2006-01-02"), booking.TimeSlot, booking.FinalPrice().StringFixed(2))
	return m.send("booking_placed", to, fmt.Sprintf("Booking #%d received", booking.ID), body)
}

// SendBookingConfirmed notifies a customer that their appointment is
// confirmed
func (m *SMTPMailer) SendBookingConfirmed(to string, booking *models.Booking) error {
	body := fmt.Sprintf(
		"Your booking #%d is confirmed for %s at %s. See you then!\n",
		booking.ID, booking.Date.Format("2006-01-02"), booking.TimeSlot)
	return m.send("booking_confirmed", to, fmt.Sprintf("Booking #%d confirmed", booking.ID), body)
}
