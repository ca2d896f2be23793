package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/arklim/menu-accounts/internal/core/port"
)

const (
	verificationSubject = "Confirm your email"
	loginNoticeSubject  = "Log in to your menu"
)

var (
	verificationText = texttemplate.Must(texttemplate.New("verification.txt").Parse(
		`Your verification code is {{.Code}}.

You can also confirm by opening this link: {{.VerifyURL}}

The code expires in {{.ValidFor}}.
`))

	verificationHTML = htmltemplate.Must(htmltemplate.New("verification.html").Parse(`
<div style="font-family: 'Helvetica Neue', Arial, sans-serif; background:#f8fafc; padding:24px;">
  <div style="max-width:520px; margin:0 auto; background:#ffffff; border:1px solid #e2e8f0; border-radius:12px; padding:24px;">
    <h2 style="margin:0 0 12px 0; font-size:22px; color:#0f172a;">Confirm your email</h2>
    <p style="margin:0 0 16px 0; color:#334155;">Enter this code to continue:</p>
    <p style="margin:0 0 20px 0; font-size:28px; letter-spacing:6px; font-weight:700; color:#0f172a; text-align:center;">{{.Code}}</p>
    <div style="margin:0 0 20px 0; text-align:center;">
      <a href="{{.VerifyURL}}" style="display:inline-block; padding:12px 18px; border-radius:10px; background:#0ea5e9; color:#ffffff; text-decoration:none; font-weight:700;">Confirm email</a>
    </div>
    <p style="margin:0; color:#94a3b8; font-size:12px;">The code expires in {{.ValidFor}}.</p>
  </div>
</div>`))

	loginNoticeText = texttemplate.Must(texttemplate.New("login.txt").Parse(
		`You already have an account. Please log in here: {{.LoginURL}}
`))

	loginNoticeHTML = htmltemplate.Must(htmltemplate.New("login.html").Parse(`
<div style="font-family: 'Helvetica Neue', Arial, sans-serif; background:#f8fafc; padding:24px;">
  <div style="max-width:520px; margin:0 auto; background:#ffffff; border:1px solid #e2e8f0; border-radius:12px; padding:24px;">
    <h2 style="margin:0 0 12px 0; font-size:22px; color:#0f172a;">Log in</h2>
    <p style="margin:0 0 16px 0; color:#334155;">An account already exists with this email. Log in to continue.</p>
    <div style="margin:0 0 20px 0; text-align:center;">
      <a href="{{.LoginURL}}" style="display:inline-block; padding:12px 18px; border-radius:10px; background:#0ea5e9; color:#ffffff; text-decoration:none; font-weight:700;">Go to login</a>
    </div>
  </div>
</div>`))
)

// VerificationData fills the code-and-link email.
type VerificationData struct {
	Code      string
	VerifyURL string
	ValidFor  string
}

// LoginNoticeData fills the existing-account email.
type LoginNoticeData struct {
	LoginURL string
}

// VerificationEmail renders the code-and-link message.
func VerificationEmail(to string, data VerificationData) (port.Email, error) {
	return render(to, verificationSubject, verificationText, verificationHTML, data)
}

// LoginNoticeEmail renders the message sent when the address already has an active account.
func LoginNoticeEmail(to string, data LoginNoticeData) (port.Email, error) {
	return render(to, loginNoticeSubject, loginNoticeText, loginNoticeHTML, data)
}

func render(to, subject string, text *texttemplate.Template, html *htmltemplate.Template, data any) (port.Email, error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		return port.Email{}, fmt.Errorf("mail: render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		return port.Email{}, fmt.Errorf("mail: render %s: %w", html.Name(), err)
	}
	return port.Email{
		To:      to,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}
