package email

import (
	"fmt"
	"html/template"
	"strings"
)

// Template names accepted by Sender.Send.
const (
	TemplateVerifyEmailOtp    = "verifyEmailOtp"
	TemplateForgotPasswordOtp = "forgotPasswordOtp"
)

var templates = template.Must(template.New("email").Parse(`
{{define "verifyEmailOtp"}}
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Verify your email</h2>
  <p>Hi {{.Email}},</p>
  <p>Your verification code is:</p>
  <p style="font-size: 28px; letter-spacing: 4px;"><strong>{{.Otp}}</strong></p>
  <p>This code expires at {{.ExpiresAt}}. If you did not request it, you can ignore this email.</p>
</body>
</html>
{{end}}

{{define "forgotPasswordOtp"}}
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Password reset requested</h2>
  <p>Hi {{.Email}},</p>
  <p>Your password reset code is:</p>
  <p style="font-size: 28px; letter-spacing: 4px;"><strong>{{.Otp}}</strong></p>
  <p>This code expires at {{.ExpiresAt}}. If you did not request a reset, no action is needed.</p>
</body>
</html>
{{end}}
`))

// Render executes the named template with the given data.
func Render(name string, data TemplateData) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return b.String(), nil
}
