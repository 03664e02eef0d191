package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// CodeEmailData feeds the verification-code templates.
type CodeEmailData struct {
	Code       string
	Email      string
	ExpiryMins int
}

var codeHTML = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1f2933;">
    <h2>{{.Heading}}</h2>
    <p>Use this code to {{.Action}}:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in {{.ExpiryMins}} minutes. If you did not request it, you can ignore this email.</p>
  </body>
</html>
`))

var codeText = texttemplate.Must(texttemplate.New("code").Parse(`{{.Heading}}

Use this code to {{.Action}}: {{.Code}}

The code expires in {{.ExpiryMins}} minutes. If you did not request it, you can ignore this email.
`))

var welcomeHTML = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1f2933;">
    <h2>Welcome to Aria</h2>
    <p>Your account {{.Email}} is ready. Sign in any time to pick up where you left off.</p>
  </body>
</html>
`))

type codeTemplateData struct {
	Heading    string
	Action     string
	Code       string
	ExpiryMins int
}

// RenderCodeEmail produces the purpose-specific verification message.
// purpose "register" and "reset" differ in subject and copy only.
func RenderCodeEmail(purpose string, data CodeEmailData) (Message, error) {
	td := codeTemplateData{Code: data.Code, ExpiryMins: data.ExpiryMins}
	var subject string
	switch purpose {
	case "register":
		subject = "Verification Code - Aria"
		td.Heading = "Verify your email"
		td.Action = "finish creating your account"
	case "reset":
		subject = "Reset Password - Aria"
		td.Heading = "Reset your password"
		td.Action = "reset your password"
	default:
		return Message{}, fmt.Errorf("mailer: unknown purpose %q", purpose)
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := codeHTML.Execute(&htmlBuf, td); err != nil {
		return Message{}, err
	}
	if err := codeText.Execute(&textBuf, td); err != nil {
		return Message{}, err
	}
	return Message{
		To:       data.Email,
		Subject:  subject,
		HTMLBody: htmlBuf.String(),
		TextBody: textBuf.String(),
	}, nil
}

// RenderWelcomeEmail produces the post-registration welcome message sent from
// the background worker.
func RenderWelcomeEmail(email string) (Message, error) {
	var htmlBuf bytes.Buffer
	if err := welcomeHTML.Execute(&htmlBuf, struct{ Email string }{Email: email}); err != nil {
		return Message{}, err
	}
	return Message{
		To:       email,
		Subject:  "Welcome to Aria",
		HTMLBody: htmlBuf.String(),
		TextBody: fmt.Sprintf("Welcome to Aria\n\nYour account %s is ready.\n", email),
	}, nil
}
