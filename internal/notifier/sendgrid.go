package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGrid delivers activation emails through the SendGrid v3 mail/send API.
// URL may point anywhere (a sandbox or a test server); an empty path falls
// back to /v3/mail/send.
type SendGrid struct {
	APIKey    string
	URL       string
	FromEmail string
	FromName  string
	Client    *http.Client
}

func NewSendGrid(apiKey, url, fromEmail, fromName string) *SendGrid {
	return &SendGrid{
		APIKey:    apiKey,
		URL:       url,
		FromEmail: fromEmail,
		FromName:  fromName,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SendGrid) Send(ctx context.Context, n Notification) error {
	if s.APIKey == "" {
		return fmt.Errorf("sendgrid: %w: missing API key", ErrNotConfigured)
	}
	text, html, err := renderActivation(n)
	if err != nil {
		return fmt.Errorf("sendgrid: render: %w", err)
	}
	host, endpoint, err := splitSendGridURL(s.URL)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.FromName, s.FromEmail))
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(n.FirstName, n.ToEmail))
	p.Subject = activationSubject
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", text), mail.NewContent("text/html", html))

	req := sendgrid.GetRequest(s.APIKey, endpoint, host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(m)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := (&rest.Client{HTTPClient: client}).SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := resp.Body
		if len(body) > 2048 {
			body = body[:2048]
		}
		return fmt.Errorf("sendgrid: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(body))
	}
	return nil
}

// splitSendGridURL turns SENDGRID_URL into the host and endpoint pair the
// SDK request builder expects.
func splitSendGridURL(raw string) (host, endpoint string, err error) {
	if raw == "" {
		return "", sendGridEndpoint, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("url %q needs a scheme and host", raw)
	}
	endpoint = u.EscapedPath()
	if endpoint == "" || endpoint == "/" {
		endpoint = sendGridEndpoint
	}
	if u.RawQuery != "" {
		endpoint += "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host, endpoint, nil
}
