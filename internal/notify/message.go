package notify

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"
)

// WelcomeSubject is the subject line of the registration mail.
const WelcomeSubject = "Welcome to Global Study Share"

var welcomeTemplate = template.Must(template.New("welcome").Parse(
	`<h3>Hi {{.Name}},</h3><p>Thank you for registering on our platform!</p><p>We're excited to have you with us.</p>`,
))

// Message is a rendered mail ready for a Transport.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// WelcomeMessage renders the registration mail. The display name is escaped.
func WelcomeMessage(to, name string) (Message, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, struct{ Name string }{Name: strings.TrimSpace(name)}); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: WelcomeSubject, HTML: buf.String()}, nil
}

// ValidAddress applies the same address parsing the SMTP transport uses.
func ValidAddress(addr string) bool {
	if strings.TrimSpace(addr) == "" {
		return false
	}
	return mail.NewMsg().To(addr) == nil
}
