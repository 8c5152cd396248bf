package email

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/pipcasso/fulfillment/internal/purchases"
	"github.com/pipcasso/fulfillment/storage/db"
	"github.com/skip2/go-qrcode"
)

const (
	typeTransactional            = "transactional"
	templatePurchaseConfirmation = "purchase_confirmation"
)

// HistoryStore records every email handed to the SMTP relay.
type HistoryStore interface {
	CreateEmailHistory(ctx context.Context, arg db.CreateEmailHistoryParams) (db.EmailHistory, error)
}

// Config holds the Brevo SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

// Service handles email sending via Brevo SMTP
type Service struct {
	cfg     Config
	history HistoryStore

	// sendMail is smtp.SendMail outside of tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service configured with Brevo SMTP
func NewService(cfg Config, history HistoryStore) *Service {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Service{
		cfg:      cfg,
		history:  history,
		sendMail: smtp.SendMail,
	}
}

// Email represents an email message
type Email struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
	ReplyTo string
}

// Send sends an email via Brevo SMTP
func (s *Service) Send(email *Email) error {
	if s.cfg.Host == "" || s.cfg.Password == "" || s.cfg.From == "" {
		return fmt.Errorf("email service not configured: missing BREVO_SMTP_HOST, BREVO_SMTP_KEY, or EMAIL_FROM")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(email.To[0])))
	if email.ReplyTo != "" {
		msg.WriteString(fmt.Sprintf("Reply-To: %s\r\n", headerValue(email.ReplyTo)))
	}
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(email.Subject))))

	if email.IsHTML {
		msg.WriteString("MIME-Version: 1.0\r\n")
		msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	}

	msg.WriteString("\r\n")
	msg.WriteString(email.Body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.sendMail(addr, auth, s.cfg.From, email.To, msg.Bytes()); err != nil {
		slog.Error("failed to send email", "error", err, "to", email.To)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("email sent successfully", "to", email.To, "subject", email.Subject)
	return nil
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue keeps caller text on a single header line.
func headerValue(v string) string {
	return headerBreaks.Replace(v)
}

// LogEmailSend logs an email send to the database
func (s *Service) LogEmailSend(ctx context.Context, recipientEmail, emailType, subject, templateName string, metadata map[string]any) error {
	if s.history == nil {
		return nil
	}

	var metadataJSON sql.NullString
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err != nil {
			slog.Warn("failed to marshal email metadata", "error", err)
		} else {
			metadataJSON = sql.NullString{String: string(jsonBytes), Valid: true}
		}
	}

	_, err := s.history.CreateEmailHistory(ctx, db.CreateEmailHistoryParams{
		ID:             ulid.Make().String(),
		RecipientEmail: recipientEmail,
		EmailType:      emailType,
		Subject:        subject,
		TemplateName:   templateName,
		Metadata:       metadataJSON,
	})
	if err != nil {
		slog.Error("failed to log email send", "error", err, "email", recipientEmail, "type", emailType)
		return fmt.Errorf("failed to log email: %w", err)
	}

	return nil
}

// PurchaseConfirmationData is the template data for the purchase email.
type PurchaseConfirmationData struct {
	ProjectName string
	Code        string
	AssetURL    string
	PDFURL      string
	RedeemURL   string
	QRCode      template.URL
}

// SendPurchaseConfirmation emails the redemption code and download links.
func (s *Service) SendPurchaseConfirmation(ctx context.Context, c purchases.Confirmation) error {
	data := &PurchaseConfirmationData{
		ProjectName: c.ProjectName,
		Code:        c.Code,
		AssetURL:    c.AssetURL,
		PDFURL:      c.PDFURL,
		RedeemURL:   strings.TrimRight(s.cfg.BaseURL, "/") + "/redeem",
	}

	qr, err := qrcodeDataURI(data.RedeemURL)
	if err != nil {
		slog.Warn("failed to render redeem QR code", "error", err)
	} else {
		data.QRCode = qr
	}

	html, err := RenderPurchaseConfirmationEmail(data)
	if err != nil {
		return err
	}

	subject := purchaseSubject(c.ProjectName)
	if err := s.Send(&Email{
		To:      []string{c.Email},
		Subject: subject,
		Body:    html,
		IsHTML:  true,
	}); err != nil {
		return err
	}

	// History is best effort once the message has left.
	_ = s.LogEmailSend(ctx, c.Email, typeTransactional, subject, templatePurchaseConfirmation, map[string]any{
		"code":    c.Code,
		"project": c.ProjectName,
	})
	return nil
}

// RenderPurchaseConfirmationEmail renders the purchase email for sending or preview.
func RenderPurchaseConfirmationEmail(data *PurchaseConfirmationData) (string, error) {
	tmpl := template.Must(template.New("purchase").Parse(purchaseConfirmationContentTemplate))

	var content bytes.Buffer
	if err := tmpl.Execute(&content, data); err != nil {
		return "", fmt.Errorf("failed to render purchase email content: %w", err)
	}

	return WrapEmailContent(content.String(), purchaseSubject(data.ProjectName))
}

func purchaseSubject(project string) string {
	if project == "" {
		return "Your Pipcasso download is ready!"
	}
	return fmt.Sprintf("Your Pipcasso download is ready: %s", project)
}

func qrcodeDataURI(content string) (template.URL, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
