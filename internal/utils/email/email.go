package email

import (
	"fmt"
	"net/smtp"

	"github.com/fedinairn08/bank-rest/internal/config"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendTransferNotification sends a confirmation email for a completed transfer
func (s *Sender) SendTransferNotification(to, username string, transfer *models.Transfer) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Transfer Confirmation"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your transfer of %s has been completed.\n"+
			"From card: %d\n"+
			"To card: %d\n"+
			"Transfer time: %s\n",
		username,
		transfer.Amount.StringFixed(2),
		transfer.FromCardID,
		transfer.ToCardID,
		transfer.TransferDate.Format("2006-01-02 15:04:05"),
	)
	if transfer.Description != "" {
		body += fmt.Sprintf("Description: %s\n", transfer.Description)
	}
	body += "\nBest regards,\nBank Service"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
