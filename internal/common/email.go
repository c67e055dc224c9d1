package common

// EmailSender is the contract for delivering transactional email.
type EmailSender interface {
	Send(to []string, subject, html string) error
}

// Email is a single message captured by InMemoryEmail.
type Email struct {
	To      []string
	Subject string
	HTML    string
}

// InMemoryEmail records messages instead of sending them. Test helper.
type InMemoryEmail struct {
	Outbox []Email
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to []string, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send([]string, string, string) error { return nil }
