package service

import (
	"fmt"
	"strings"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/internal/pkg/logger"
	"cs-chatbot-be/internal/pkg/mailer"
	"cs-chatbot-be/pkg/session"
)

// IEscalationService hands an unresolved conversation to a human: the
// session transcript is mailed to the support inbox.
type IEscalationService interface {
	Escalate(sessionId, reason string) *dto.SessionActionResponse
}

type escalationService struct {
	sessions     *session.Manager
	emailService mailer.IEmailService
	supportEmail string
	logger       logger.ILogger
}

func NewEscalationService(
	sessions *session.Manager,
	emailService mailer.IEmailService,
	supportEmail string,
	log logger.ILogger,
) IEscalationService {
	return &escalationService{
		sessions:     sessions,
		emailService: emailService,
		supportEmail: supportEmail,
		logger:       log,
	}
}

func (es *escalationService) Escalate(sessionId, reason string) *dto.SessionActionResponse {
	mem, ok := es.sessions.Memory(sessionId)
	if !ok {
		return &dto.SessionActionResponse{
			Success: false,
			Message: "Session does not exist",
		}
	}

	if es.supportEmail == "" {
		return &dto.SessionActionResponse{
			Success:   false,
			Message:   "Escalation inbox is not configured",
			SessionId: sessionId,
		}
	}

	var transcript strings.Builder
	for _, msg := range mem.History() {
		fmt.Fprintf(&transcript, "[%s] %s\n", msg.Role, msg.Content)
	}
	if transcript.Len() == 0 {
		transcript.WriteString("(no conversation yet)")
	}

	if err := es.emailService.SendEscalation(es.supportEmail, sessionId, reason, transcript.String()); err != nil {
		es.logger.Error("EscalationService", "Failed to send escalation email", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return &dto.SessionActionResponse{
			Success:   false,
			Message:   "Failed to reach the support inbox",
			SessionId: sessionId,
		}
	}

	return &dto.SessionActionResponse{
		Success:   true,
		Message:   "A human agent has been notified and will follow up",
		SessionId: sessionId,
	}
}
