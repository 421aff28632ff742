package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"speech-transcriber/domain/notification"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const mimeBoundary = "transcript-boundary"

// GmailService defines the Gmail API operations the client needs
type GmailService interface {
	SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error)
}

// GoogleGmailService is the production implementation using the Gmail API
type GoogleGmailService struct {
	service *gmail.Service
}

// NewGoogleGmailService builds a Gmail service on an authorized HTTP client
func NewGoogleGmailService(ctx context.Context, httpClient *http.Client) (*GoogleGmailService, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GoogleGmailService{service: svc}, nil
}

// SendMessage sends an email via Gmail API
func (s *GoogleGmailService) SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
	return s.service.Users.Messages.Send(userID, message).Context(ctx).Do()
}

// Client implements notification.EmailSender using Gmail API
type Client struct {
	gmailService GmailService
	from         notification.Recipient
	template     notification.EmailTemplate
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithGmailService sets the Gmail service
func WithGmailService(svc GmailService) ClientOption {
	return func(c *Client) {
		c.gmailService = svc
	}
}

// WithTemplate sets a custom email template
func WithTemplate(tmpl notification.EmailTemplate) ClientOption {
	return func(c *Client) {
		c.template = tmpl
	}
}

// NewClient creates a new Gmail client
func NewClient(from notification.Recipient, opts ...ClientOption) *Client {
	c := &Client{
		from:     from,
		template: notification.DefaultTemplate,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send renders the transcript email and sends it through the Gmail API
func (c *Client) Send(ctx context.Context, req *notification.EmailRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid email request: %w", err)
	}
	if c.gmailService == nil {
		return fmt.Errorf("%w: no Gmail service configured", notification.ErrSendFailed)
	}

	data := notification.NewTemplateData(req)

	subject, err := c.template.RenderSubject(data)
	if err != nil {
		return fmt.Errorf("failed to render subject: %w", err)
	}

	plainText, err := c.template.RenderPlainText(data)
	if err != nil {
		return fmt.Errorf("failed to render plain text: %w", err)
	}

	htmlBody, err := c.template.RenderHTML(data)
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(c.buildMIMEMessage(req, subject, plainText, htmlBody))),
	}

	if _, err := c.gmailService.SendMessage(ctx, "me", message); err != nil {
		return fmt.Errorf("%w: %v", notification.ErrSendFailed, err)
	}

	return nil
}

// buildMIMEMessage builds a RFC 2822 multipart/alternative message
func (c *Client) buildMIMEMessage(req *notification.EmailRequest, subject, plainText, htmlBody string) string {
	var msg strings.Builder

	fmt.Fprintf(&msg, "From: %s\r\n", formatAddress(c.from))
	fmt.Fprintf(&msg, "To: %s\r\n", formatAddresses(req.To))
	if len(req.CC) > 0 {
		fmt.Fprintf(&msg, "Cc: %s\r\n", formatAddresses(req.CC))
	}

	// Source names come from uploads and video titles, so they may be non-ASCII
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)

	writePart(&msg, "text/plain", plainText)
	writePart(&msg, "text/html", htmlBody)

	fmt.Fprintf(&msg, "--%s--\r\n", mimeBoundary)

	return msg.String()
}

func writePart(msg *strings.Builder, contentType, body string) {
	fmt.Fprintf(msg, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(msg, "Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType)
	msg.WriteString(body)
	msg.WriteString("\r\n\r\n")
}

func formatAddress(r notification.Recipient) string {
	if r.Name == "" {
		return r.Address
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", r.Name), r.Address)
}

func formatAddresses(rs []notification.Recipient) string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = formatAddress(r)
	}
	return strings.Join(out, ", ")
}

var _ notification.EmailSender = (*Client)(nil)
