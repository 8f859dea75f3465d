package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/internal/pkg/logger"
	"cs-chatbot-be/pkg/events"
	"cs-chatbot-be/pkg/greeting"
	"cs-chatbot-be/pkg/rag"
	"cs-chatbot-be/pkg/session"
)

// IChatService owns the session lifecycle endpoints and drives one chat
// turn as an SSE stream.
type IChatService interface {
	CreateSession(withGreeting bool) *dto.CreateSessionResponse
	SessionStats() *dto.SessionStatsResponse
	DeleteSession(id string) *dto.DeleteSessionResponse
	SessionStatus(id string) *dto.SessionStatusResponse
	AbortSession(id string) *dto.SessionActionResponse
	ResetSession(id string) *dto.SessionActionResponse
	SmartGreeting(ctx context.Context, id string) *dto.SmartGreetingResponse
	StreamChat(ctx context.Context, req *dto.ChatStreamRequest, w *bufio.Writer)
}

type chatService struct {
	sessions      *session.Manager
	engineFactory rag.EngineFactory
	eventSink     ISessionEventService
	logger        logger.ILogger

	batchSize  int
	chunkDelay time.Duration
}

func NewChatService(
	sessions *session.Manager,
	engineFactory rag.EngineFactory,
	eventSink ISessionEventService,
	log logger.ILogger,
	batchSize int,
	chunkDelay time.Duration,
) IChatService {
	if batchSize <= 0 {
		batchSize = 5
	}
	if chunkDelay <= 0 {
		chunkDelay = 100 * time.Millisecond
	}
	return &chatService{
		sessions:      sessions,
		engineFactory: engineFactory,
		eventSink:     eventSink,
		logger:        log,
		batchSize:     batchSize,
		chunkDelay:    chunkDelay,
	}
}

func (cs *chatService) CreateSession(withGreeting bool) *dto.CreateSessionResponse {
	id := cs.sessions.Create()
	cs.eventSink.Emit(events.NewSessionEvent(events.TypeSessionCreated, id))

	res := &dto.CreateSessionResponse{
		SessionId: id,
		Message:   "Session created, ready to chat",
	}
	if withGreeting {
		res.Greeting = greeting.Random()
	}
	return res
}

// SessionStats sweeps expired sessions as a side effect, so polling the
// stats endpoint doubles as the garbage collection trigger.
func (cs *chatService) SessionStats() *dto.SessionStatsResponse {
	cleaned := cs.sessions.SweepExpired()
	if cleaned > 0 {
		cs.eventSink.Emit(events.NewSessionEvent(events.TypeSessionExpired, ""))
		cs.logger.Info("ChatService", "Expired sessions swept", map[string]interface{}{"cleaned": cleaned})
	}
	return &dto.SessionStatsResponse{
		ActiveSessions:  cs.sessions.Count(),
		CleanedSessions: cleaned,
	}
}

func (cs *chatService) DeleteSession(id string) *dto.DeleteSessionResponse {
	deleted := cs.sessions.Delete(id)
	if deleted {
		cs.eventSink.Emit(events.NewSessionEvent(events.TypeSessionDeleted, id))
		return &dto.DeleteSessionResponse{Deleted: true, Message: "Session deleted"}
	}
	return &dto.DeleteSessionResponse{Deleted: false, Message: "Session does not exist"}
}

func (cs *chatService) SessionStatus(id string) *dto.SessionStatusResponse {
	s, ok := cs.sessions.Get(id)
	if !ok {
		return &dto.SessionStatusResponse{
			Exists:  false,
			Message: "Session does not exist",
		}
	}
	return &dto.SessionStatusResponse{
		Exists:       true,
		SessionId:    id,
		IsProcessing: s.IsProcessing,
		IsAborted:    s.IsAborted,
		CreatedAt:    s.CreatedAt.Unix(),
		LastAccess:   s.LastAccess.Unix(),
	}
}

// AbortSession distinguishes "unknown session" from "nothing in flight":
// both fail, with different messages.
func (cs *chatService) AbortSession(id string) *dto.SessionActionResponse {
	if _, ok := cs.sessions.Get(id); !ok {
		return &dto.SessionActionResponse{
			Success: false,
			Message: "Session does not exist",
		}
	}

	if !cs.sessions.IsProcessing(id) {
		return &dto.SessionActionResponse{
			Success: false,
			Message: "No conversation in progress",
		}
	}

	aborted := cs.sessions.Abort(id)
	res := &dto.SessionActionResponse{
		Success:   aborted,
		SessionId: id,
	}
	if aborted {
		res.Message = "Conversation aborted"
		cs.eventSink.Emit(events.NewSessionEvent(events.TypeSessionAborted, id))
	} else {
		res.Message = "Abort failed"
	}
	return res
}

// ResetSession clears the abort flag and any stale processing flag but
// keeps the conversation history. Success even when no abort was set.
func (cs *chatService) ResetSession(id string) *dto.SessionActionResponse {
	if _, ok := cs.sessions.Get(id); !ok {
		return &dto.SessionActionResponse{
			Success: false,
			Message: "Session does not exist",
		}
	}

	reset := cs.sessions.ResetAbort(id)
	cs.sessions.SetProcessing(id, false)

	res := &dto.SessionActionResponse{
		Success:   reset,
		SessionId: id,
	}
	if reset {
		res.Message = "Session state reset"
	} else {
		res.Message = "Reset failed"
	}
	return res
}

// SmartGreeting asks the answer engine for a context-aware greeting, with
// a canned line as fallback when the engine fails.
func (cs *chatService) SmartGreeting(ctx context.Context, id string) *dto.SmartGreetingResponse {
	if _, ok := cs.sessions.Get(id); !ok {
		return &dto.SmartGreetingResponse{
			Success: false,
			Message: "Session does not exist",
		}
	}

	engine := cs.bindEngine(id)
	answer, err := engine.Chat(ctx, greeting.SmartPrompt)
	if err != nil {
		cs.logger.Warn("ChatService", "Smart greeting failed, using fallback", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return &dto.SmartGreetingResponse{
			Success:          false,
			Message:          fmt.Sprintf("Failed to generate greeting: %v", err),
			FallbackGreeting: greeting.Random(),
		}
	}

	return &dto.SmartGreetingResponse{
		Success:   true,
		Greeting:  answer,
		SessionId: id,
	}
}

// bindEngine returns the session's cached chat engine, constructing and
// caching one on first use. The session must exist.
func (cs *chatService) bindEngine(id string) rag.ChatEngine {
	if engine := cs.sessions.ChatEngine(id); engine != nil {
		return engine
	}
	_, mem := cs.sessions.GetOrCreateMemory(id)
	engine := cs.engineFactory.NewChatEngine(mem)
	cs.sessions.SetChatEngine(id, engine)
	return engine
}

// StreamChat runs one chat turn and writes the SSE protocol to w. The
// event order per turn is: optional session_id (only when the caller did
// not supply one), start, zero or more cumulative content events, then
// exactly one of done / aborted / error.
//
// Cancellation is cooperative: the abort flag is polled before the engine
// call, after it, and before each token. The engine call itself cannot be
// interrupted.
func (cs *chatService) StreamChat(ctx context.Context, req *dto.ChatStreamRequest, w *bufio.Writer) {
	out := &sseWriter{w: w}

	sessionId := req.SessionId
	created := false
	if sessionId == "" {
		sessionId = cs.sessions.Create()
		created = true
		cs.eventSink.Emit(events.NewSessionEvent(events.TypeSessionCreated, sessionId))
	} else if _, ok := cs.sessions.Get(sessionId); !ok {
		if cs.sessions.Resolution() == session.ResolutionStrict {
			out.emit(dto.ChatStreamEvent{Type: "error", Message: "Session does not exist"})
			return
		}
		// Lenient: replace the unknown id with a fresh session. The new id
		// is streamed back so the client can adopt it.
		sessionId = cs.sessions.Create()
		created = true
		cs.eventSink.Emit(events.NewSessionEvent(events.TypeSessionCreated, sessionId))
	}

	engine := cs.bindEngine(sessionId)

	if !cs.sessions.BeginTurn(sessionId) {
		out.emit(dto.ChatStreamEvent{Type: "error", Message: "Another turn is already in progress"})
		return
	}
	// A panic anywhere in the turn still ends the stream with a terminal
	// error event, and the turn lock is released on every path.
	defer func() {
		if r := recover(); r != nil {
			cs.logger.Error("ChatService", "Panic during chat turn", map[string]interface{}{
				"session_id": sessionId,
				"panic":      fmt.Sprintf("%v", r),
			})
			out.emit(dto.ChatStreamEvent{Type: "error", Message: fmt.Sprintf("An error occurred: %v", r)})
		}
		cs.sessions.EndTurn(sessionId)
	}()

	// A leftover abort flag from a previous turn must not kill this one.
	cs.sessions.ResetAbort(sessionId)

	if created {
		out.emit(dto.ChatStreamEvent{Type: "session_id", SessionId: sessionId})
	}
	out.emit(dto.ChatStreamEvent{Type: "start", Message: "Thinking..."})

	if cs.sessions.IsAborted(sessionId) {
		out.emit(dto.ChatStreamEvent{Type: "aborted", Message: "Conversation aborted"})
		return
	}

	answer, err := engine.Chat(ctx, req.Message)
	if err != nil {
		cs.logger.Error("ChatService", "Answer engine failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		out.emit(dto.ChatStreamEvent{Type: "error", Message: fmt.Sprintf("An error occurred: %v", err)})
		return
	}

	// The abort may have arrived while the engine was busy; the answer is
	// discarded in that case.
	if cs.sessions.IsAborted(sessionId) {
		out.emit(dto.ChatStreamEvent{Type: "aborted", Message: "Conversation aborted"})
		return
	}

	words := strings.Fields(answer)
	var text strings.Builder
	for i, word := range words {
		if cs.sessions.IsAborted(sessionId) {
			out.emit(dto.ChatStreamEvent{Type: "aborted", Message: "Conversation aborted"})
			return
		}

		if i > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(word)

		// Emit the accumulated prefix every batch and on the last word.
		if (i+1)%cs.batchSize == 0 || i == len(words)-1 {
			out.emit(dto.ChatStreamEvent{Type: "content", Content: text.String()})
			time.Sleep(cs.chunkDelay)
		}
	}

	out.emit(dto.ChatStreamEvent{Type: "done", Message: "Answer complete"})
}

// sseWriter renders events as SSE data lines and flushes each one so the
// client sees them immediately.
type sseWriter struct {
	w *bufio.Writer
}

func (s *sseWriter) emit(event dto.ChatStreamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.w.Flush()
}
