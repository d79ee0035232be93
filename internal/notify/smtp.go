package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/spec-kit/study-share/internal/config"
)

// Transport delivers one rendered message. Implementations must honour ctx.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// TransportError carries a classified delivery failure.
type TransportError struct {
	Reason Reason
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SMTPTransport sends mail through an authenticated SMTP relay.
type SMTPTransport struct {
	host     string
	options  []mail.Option
	fromName string
	fromAddr string
}

// NewSMTPTransport builds a transport from configuration. No connection is
// made until the first send.
func NewSMTPTransport(cfg config.SMTPConfig, timeout time.Duration) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host not configured")
	}
	if cfg.Username == "" {
		return nil, errors.New("smtp sender (EMAIL_USER) not configured")
	}
	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if timeout > 0 {
		options = append(options, mail.WithTimeout(timeout))
	}
	// validate options once up front
	if _, err := mail.NewClient(cfg.Host, options...); err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPTransport{
		host:     cfg.Host,
		options:  options,
		fromName: cfg.FromName,
		fromAddr: cfg.Username,
	}, nil
}

// Send dials, authenticates and delivers msg. A client is built per send so
// concurrent workers never share a connection.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(t.fromName, t.fromAddr); err != nil {
		return &TransportError{Reason: ReasonTransport, Err: err}
	}
	if err := m.To(msg.To); err != nil {
		return &TransportError{Reason: ReasonInvalidRecipient, Err: err}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	client, err := mail.NewClient(t.host, t.options...)
	if err != nil {
		return &TransportError{Reason: ReasonTransport, Err: err}
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return classifySMTPError(ctx, err)
	}
	return nil
}

func classifySMTPError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Reason: ReasonTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Reason: ReasonTimeout, Err: err}
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535:
			return &TransportError{Reason: ReasonAuthentication, Err: err}
		case 550, 553:
			return &TransportError{Reason: ReasonInvalidRecipient, Err: err}
		}
	}
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.Reason == mail.ErrSMTPRcptTo {
		return &TransportError{Reason: ReasonInvalidRecipient, Err: err}
	}
	return &TransportError{Reason: ReasonTransport, Err: err}
}

// DisabledTransport stands in when no SMTP credentials are configured. Every
// send fails as a transport error so the job is kept for requeue.
type DisabledTransport struct{}

func (DisabledTransport) Send(context.Context, Message) error {
	return &TransportError{Reason: ReasonTransport, Err: errors.New("smtp not configured")}
}
