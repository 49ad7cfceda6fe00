package core

import "net/mail"

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		Body    string // text/plain
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.Body != "" }

// ParseAddresses parses plain email addresses, skipping blank ones.
func ParseAddresses(addrs []string) ([]mail.Address, error) {
	parsed := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		if a = CleanString(a, true /* lower */); a == "" {
			continue
		}
		addr, err := mail.ParseAddress(a)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, *addr)
	}
	return parsed, nil
}
