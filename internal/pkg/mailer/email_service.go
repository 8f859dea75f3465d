package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendEscalation(toEmail, sessionId, reason, transcript string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

// SendEscalation forwards an unresolved conversation to the human support inbox.
func (s *emailService) SendEscalation(toEmail, sessionId, reason, transcript string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Escalation] Chat session %s needs a human", sessionId))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Chat escalation</h2>
			<p><b>Session:</b> %s</p>
			<p><b>Customer's reason:</b> %s</p>
			<h3>Transcript</h3>
			<pre style="background: #f4f4f4; padding: 12px; white-space: pre-wrap;">%s</pre>
		</div>
	`, sessionId, reason, transcript)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send escalation for session %s: %v\n", sessionId, err)
		return err
	}

	fmt.Printf("[MAILER] Escalation for session %s sent to %s\n", sessionId, toEmail)
	return nil
}
