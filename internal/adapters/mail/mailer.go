package mail

import (
	"bytes"
	"context"
	"html"
	"html/template"
	"net/url"

	"github.com/Miraines/gadgets-store/auth-service/internal/domain/notification"
	"github.com/microcosm-cc/bluemonday"
)

var (
	activationTmpl = template.Must(template.New("activation").Parse(
		`<h1>Activate account</h1>
<p>Hi {{.Name}}, please activate your account!</p>
<a href="{{.Link}}">{{.Link}}</a>`))

	resetTmpl = template.Must(template.New("reset").Parse(
		`<h1>Reset your password</h1>
<p>Hi {{.Name}}, please click the link below to reset your password:</p>
<a href="{{.Link}}">{{.Link}}</a>`))

	emailChangedTmpl = template.Must(template.New("email_changed").Parse(
		`<h1>Email changed</h1>
<p>Hi {{.Name}},</p>
<p>Your email has been changed to {{.NewEmail}}</p>`))
)

// Mailer renders account notices. Activation and reset mail go through the
// direct sender so callers learn about failures; the email-changed notice goes
// through notices, which is expected to be asynchronous.
type Mailer struct {
	direct     notification.Sender
	notices    notification.Sender
	clientHost string
	policy     *bluemonday.Policy
}

func NewMailer(direct, notices notification.Sender, clientHost string) *Mailer {
	if notices == nil {
		notices = direct
	}
	return &Mailer{
		direct:     direct,
		notices:    notices,
		clientHost: clientHost,
		policy:     bluemonday.StrictPolicy(),
	}
}

type templateData struct {
	Name     string
	Link     string
	NewEmail string
}

func (m *Mailer) SendActivation(ctx context.Context, to, name, token string) error {
	body, err := m.render(activationTmpl, templateData{Name: name, Link: m.link("activate", token)})
	if err != nil {
		return err
	}
	return m.direct.Send(ctx, notification.Message{To: to, Subject: "Activate", HTML: body})
}

func (m *Mailer) SendReset(ctx context.Context, to, name, token string) error {
	body, err := m.render(resetTmpl, templateData{Name: name, Link: m.link("reset", token)})
	if err != nil {
		return err
	}
	return m.direct.Send(ctx, notification.Message{To: to, Subject: "Reset password", HTML: body})
}

func (m *Mailer) SendEmailChanged(ctx context.Context, oldEmail, name, newEmail string) error {
	body, err := m.render(emailChangedTmpl, templateData{Name: name, NewEmail: newEmail})
	if err != nil {
		return err
	}
	return m.notices.Send(ctx, notification.Message{To: oldEmail, Subject: "Email Change", HTML: body})
}

// link points at the storefront's hash router.
func (m *Mailer) link(route, token string) string {
	return m.clientHost + "/gadgets-store/#/" + route + "/" + url.PathEscape(token)
}

func (m *Mailer) render(t *template.Template, data templateData) (string, error) {
	// strip markup from the user-supplied name; the template escapes the rest
	data.Name = html.UnescapeString(m.policy.Sanitize(data.Name))

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
