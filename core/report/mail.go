package report

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var errNoRecipients = errors.New("no recipients")

// NewEmailMessage wraps the report as an HTML attachment addressed to recipients.
func NewEmailMessage(rep Report, grade int, to ...mail.Address) (*core.EmailMessage, error) {
	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Academic Report - Grade %d", grade),
		BodyStr: fmt.Sprintf("Please find attached the academic report of grade %d.", grade),
	}
	if err := msg.Attach(strings.NewReader(rep.HTML), rep.Filename, "text/html"); err != nil {
		return nil, errors.Wrap(err, "attaching report")
	}
	return msg, nil
}

// Mailer builds reports and hands them to an email service.
type Mailer struct {
	builder *Builder
	svc     core.EmailService
}

func NewMailer(builder *Builder, svc core.EmailService) *Mailer {
	return &Mailer{builder: builder, svc: svc}
}

// Send builds the report of grade and queues it for delivery to recipients.
func (m *Mailer) Send(ctx context.Context, grade int, to ...mail.Address) (Report, error) {
	if len(to) == 0 {
		return Report{}, errNoRecipients
	}
	rep, err := m.builder.Build(ctx, grade)
	if err != nil {
		return Report{}, err
	}
	msg, err := NewEmailMessage(rep, grade, to...)
	if err != nil {
		return Report{}, err
	}
	m.svc.SendMessages(msg)
	return rep, nil
}
