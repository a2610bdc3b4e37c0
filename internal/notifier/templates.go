package notifier

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"

	"github.com/iliyamo/signup-activation/internal/model"
)

const activationSubject = "Welcome to Vilara - Activate Your Account"

var migrationGreetings = map[string]string{
	model.MigrationFresh:   "We're excited to be your AI ERP Assistant!",
	model.MigrationEnhance: "Ready to enhance your existing ERP capabilities!",
	model.MigrationFull:    "Let's transform your ERP experience together!",
}

func greeting(migrationType string) string {
	if g, ok := migrationGreetings[migrationType]; ok {
		return g
	}
	return migrationGreetings[model.MigrationFresh]
}

type emailData struct {
	FirstName      string
	CompanyName    string
	Greeting       string
	ActivationLink string
}

var textBody = template.Must(template.New("text").Parse(`Welcome to Vilara, {{.FirstName}}!

{{.Greeting}}

Thank you for choosing Vilara for {{.CompanyName}}.

Activate your account by visiting:
{{.ActivationLink}}

This link expires in 24 hours.

What happens next?
- Complete your account activation
- Set up your workspace preferences
- Import your data (if applicable)
- Start using natural language to manage your business

If you didn't sign up for Vilara, please ignore this email.
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Welcome to Vilara, {{.FirstName}}!</h1>
    <p>{{.Greeting}}</p>
    <p>Thank you for choosing Vilara for {{.CompanyName}}.</p>
    <p>Click the button below to activate your account and get started:</p>
    <a href="{{.ActivationLink}}" style="display: inline-block; padding: 15px 30px; background: #667eea; color: white; text-decoration: none; border-radius: 5px;">Activate Your Account</a>
    <p style="color: #666; font-size: 14px;">Or copy and paste this link into your browser:<br><code>{{.ActivationLink}}</code></p>
    <p><strong>This activation link expires in 24 hours.</strong></p>
    <p style="color: #666; font-size: 12px;">If you didn't sign up for Vilara, please ignore this email.</p>
  </div>
</body>
</html>
`))

// renderActivation returns the plain-text and HTML bodies for n.
func renderActivation(n Notification) (text, html string, err error) {
	data := emailData{
		FirstName:      n.FirstName,
		CompanyName:    n.CompanyName,
		Greeting:       greeting(n.MigrationType),
		ActivationLink: n.ActivationLink,
	}
	var tb, hb bytes.Buffer
	if err := textBody.Execute(&tb, data); err != nil {
		return "", "", err
	}
	if err := htmlBody.Execute(&hb, data); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}
