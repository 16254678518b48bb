package events

import (
	"context"

	"github.com/defguard/defguard-core/internal/mail"
)

// MailSink enqueues mail-triggering events. Send failures are logged, not
// fatal to the router (§4.H "mail/wg send failures are logged but do not
// terminate the router").
type MailSink interface {
	Send(ctx context.Context, m mail.Message) error
}

// mailTemplates maps the Kinds that trigger outbound mail to their
// template, per spec.md §4.H ("enrollment started, password reset") plus
// the gateway flap notifications §4.F schedules.
var mailTemplates = map[Kind]mail.Template{
	KindGatewayDisconnected:    mail.TemplateGatewayDisconnected,
	KindGatewayReconnected:     mail.TemplateGatewayReconnected,
	KindEnrollmentStarted:      mail.TemplateEnrollmentStarted,
	KindPasswordResetRequested: mail.TemplatePasswordResetStart,
}

// toMail builds the mail.Message a mail-triggering Event enqueues, or
// (zero, false) for an event kind that never sends mail.
func toMail(ev Event) (mail.Message, bool) {
	tmpl, ok := mailTemplates[ev.Kind]
	if !ok {
		return mail.Message{}, false
	}
	return mail.Message{
		To:       ev.Context.Username,
		Template: tmpl,
		Data:     ev.Metadata,
	}, true
}

// streamConfigKinds is the set of Kinds that change activity stream
// configuration and must trigger a Component J reload (§4.H).
var streamConfigKinds = map[Kind]bool{
	KindAuditStreamAdded:    true,
	KindAuditStreamModified: true,
	KindAuditStreamRemoved:  true,
}

func isStreamConfigEvent(k Kind) bool {
	return streamConfigKinds[k]
}
