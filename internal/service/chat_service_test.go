package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/pkg/events"
	"cs-chatbot-be/pkg/rag"
	"cs-chatbot-be/pkg/session"

	"github.com/stretchr/testify/assert"
)

// fakeEngine answers with a fixed string, optionally aborting the session
// mid-call to simulate an abort arriving while the model is busy.
type fakeEngine struct {
	answer   string
	err      error
	onChat   func()
	memories []*rag.Memory
}

func (f *fakeEngine) NewChatEngine(memory *rag.Memory) rag.ChatEngine {
	f.memories = append(f.memories, memory)
	return rag.Bind(f, memory)
}

func (f *fakeEngine) Chat(ctx context.Context, memory *rag.Memory, message string) (string, error) {
	if f.onChat != nil {
		f.onChat()
	}
	return f.answer, f.err
}

type recordingSink struct {
	mu      sync.Mutex
	emitted []events.Event
}

func (r *recordingSink) Emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted = append(r.emitted, event)
}

func (r *recordingSink) Consume(ctx context.Context) error { return nil }

func (r *recordingSink) events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.emitted))
	copy(out, r.emitted)
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestChatService(engine *fakeEngine, cfg session.Config) (IChatService, *session.Manager) {
	sessions := session.NewManager(cfg)
	svc := NewChatService(sessions, engine, &recordingSink{}, nopLogger{}, 5, time.Millisecond)
	return svc, sessions
}

func streamEvents(t *testing.T, svc IChatService, req *dto.ChatStreamRequest) []dto.ChatStreamEvent {
	t.Helper()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	svc.StreamChat(context.Background(), req, w)
	w.Flush()

	var parsed []dto.ChatStreamEvent
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev dto.ChatStreamEvent
		if err := json.Unmarshal([]byte(line[len("data: "):]), &ev); err != nil {
			t.Fatalf("bad SSE payload %q: %v", line, err)
		}
		parsed = append(parsed, ev)
	}
	return parsed
}

func eventTypes(evts []dto.ChatStreamEvent) []string {
	types := make([]string, len(evts))
	for i, e := range evts {
		types[i] = e.Type
	}
	return types
}

func TestStreamChatBatchesContent(t *testing.T) {
	answer := "one two three four five six seven eight nine ten eleven twelve"
	svc, sessions := newTestChatService(&fakeEngine{answer: answer}, session.Config{})
	id := sessions.Create()

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	assert.Equal(t, []string{"start", "content", "content", "content", "done"}, eventTypes(evts))

	// Content is cumulative prefixes at 5-word boundaries, last event carries
	// the whole answer.
	assert.Equal(t, "one two three four five", evts[1].Content)
	assert.Equal(t, "one two three four five six seven eight nine ten", evts[2].Content)
	assert.Equal(t, answer, evts[3].Content)
	assert.Equal(t, "Answer complete", evts[4].Message)
}

func TestStreamChatShortAnswer(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "just three words"}, session.Config{})
	id := sessions.Create()

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	assert.Equal(t, []string{"start", "content", "done"}, eventTypes(evts))
	assert.Equal(t, "just three words", evts[1].Content)
}

func TestStreamChatEmptySessionIdCreatesSession(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi"})

	assert.Equal(t, []string{"session_id", "start", "content", "done"}, eventTypes(evts))
	assert.NotEmpty(t, evts[0].SessionId)

	_, ok := sessions.Get(evts[0].SessionId)
	assert.True(t, ok, "streamed session id not present in the store")
}

func TestStreamChatUnknownIdStrict(t *testing.T) {
	svc, _ := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{Resolution: session.ResolutionStrict})

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: "ghost"})

	assert.Equal(t, []string{"error"}, eventTypes(evts))
	assert.Equal(t, "Session does not exist", evts[0].Message)
}

func TestStreamChatUnknownIdLenient(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{Resolution: session.ResolutionLenient})

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: "ghost"})

	// The replacement id is always streamed back.
	assert.Equal(t, []string{"session_id", "start", "content", "done"}, eventTypes(evts))
	assert.NotEqual(t, "ghost", evts[0].SessionId)

	_, ok := sessions.Get(evts[0].SessionId)
	assert.True(t, ok)
}

func TestStreamChatEngineError(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{err: errors.New("model offline")}, session.Config{})
	id := sessions.Create()

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	assert.Equal(t, []string{"start", "error"}, eventTypes(evts))
	assert.Contains(t, evts[1].Message, "model offline")

	// The turn lock is released on the error path.
	assert.False(t, sessions.IsProcessing(id))
}

func TestStreamChatAbortDuringEngineCall(t *testing.T) {
	engine := &fakeEngine{answer: "this answer must be discarded"}
	svc, sessions := newTestChatService(engine, session.Config{})
	id := sessions.Create()

	engine.onChat = func() { sessions.Abort(id) }

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	assert.Equal(t, []string{"start", "aborted"}, eventTypes(evts))
	for _, ev := range evts {
		assert.NotContains(t, ev.Content, "discarded")
	}
	assert.False(t, sessions.IsProcessing(id), "processing flag must clear after abort")
}

func TestStreamChatEnginePanic(t *testing.T) {
	engine := &fakeEngine{answer: "never reached"}
	svc, sessions := newTestChatService(engine, session.Config{})
	id := sessions.Create()

	engine.onChat = func() { panic("model connection lost") }

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	// A panic inside the turn still terminates the stream with an error
	// event and releases the turn lock.
	assert.Equal(t, []string{"start", "error"}, eventTypes(evts))
	assert.Contains(t, evts[1].Message, "model connection lost")
	assert.False(t, sessions.IsProcessing(id))

	// The session stays usable for the next turn.
	engine.onChat = nil
	engine.answer = "recovered"
	evts = streamEvents(t, svc, &dto.ChatStreamRequest{Message: "again", SessionId: id})
	assert.Equal(t, []string{"start", "content", "done"}, eventTypes(evts))
}

func TestStreamChatStaleAbortFlagCleared(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})
	id := sessions.Create()
	sessions.Abort(id)

	// A leftover abort from a previous turn must not kill a new turn.
	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	assert.Equal(t, []string{"start", "content", "done"}, eventTypes(evts))
}

func TestStreamChatRejectsConcurrentTurn(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})
	id := sessions.Create()

	assert.True(t, sessions.BeginTurn(id))

	evts := streamEvents(t, svc, &dto.ChatStreamRequest{Message: "hi", SessionId: id})

	assert.Equal(t, []string{"error"}, eventTypes(evts))
	assert.Equal(t, "Another turn is already in progress", evts[0].Message)

	// The losing request must not release the winner's lock.
	assert.True(t, sessions.IsProcessing(id))
}

func TestStreamChatReusesBoundEngine(t *testing.T) {
	engine := &fakeEngine{answer: "ok"}
	svc, sessions := newTestChatService(engine, session.Config{})
	id := sessions.Create()

	streamEvents(t, svc, &dto.ChatStreamRequest{Message: "first", SessionId: id})
	streamEvents(t, svc, &dto.ChatStreamRequest{Message: "second", SessionId: id})

	assert.Len(t, engine.memories, 1, "engine must be bound once per session")
}

func TestAbortSessionMessages(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})
	id := sessions.Create()

	res := svc.AbortSession("ghost")
	assert.False(t, res.Success)
	assert.Equal(t, "Session does not exist", res.Message)

	res = svc.AbortSession(id)
	assert.False(t, res.Success)
	assert.Equal(t, "No conversation in progress", res.Message)

	sessions.BeginTurn(id)
	res = svc.AbortSession(id)
	assert.True(t, res.Success)
	assert.Equal(t, "Conversation aborted", res.Message)
	assert.True(t, sessions.IsAborted(id))
}

func TestResetSession(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})
	id := sessions.Create()

	res := svc.ResetSession("ghost")
	assert.False(t, res.Success)

	sessions.Abort(id)
	sessions.SetProcessing(id, true)

	res = svc.ResetSession(id)
	assert.True(t, res.Success)
	assert.False(t, sessions.IsAborted(id))
	assert.False(t, sessions.IsProcessing(id))

	// Reset with nothing to clear still succeeds.
	res = svc.ResetSession(id)
	assert.True(t, res.Success)
}

func TestCreateSessionGreeting(t *testing.T) {
	svc, _ := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})

	res := svc.CreateSession(true)
	assert.NotEmpty(t, res.SessionId)
	assert.NotEmpty(t, res.Greeting)

	res = svc.CreateSession(false)
	assert.Empty(t, res.Greeting)
}

func TestSessionStatsSweeps(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})
	sessions.Create()
	sessions.Create()

	stats := svc.SessionStats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 0, stats.CleanedSessions)
}

func TestSessionStatus(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "ok"}, session.Config{})
	id := sessions.Create()

	res := svc.SessionStatus("ghost")
	assert.False(t, res.Exists)

	sessions.BeginTurn(id)
	res = svc.SessionStatus(id)
	assert.True(t, res.Exists)
	assert.True(t, res.IsProcessing)
	assert.False(t, res.IsAborted)
	assert.NotZero(t, res.CreatedAt)
}

func TestSmartGreetingFallback(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{err: errors.New("model offline")}, session.Config{})
	id := sessions.Create()

	res := svc.SmartGreeting(context.Background(), "ghost")
	assert.False(t, res.Success)
	assert.Equal(t, "Session does not exist", res.Message)

	res = svc.SmartGreeting(context.Background(), id)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.FallbackGreeting, "engine failure must fall back to a canned greeting")
}

func TestSmartGreetingSuccess(t *testing.T) {
	svc, sessions := newTestChatService(&fakeEngine{answer: "Welcome back!"}, session.Config{})
	id := sessions.Create()

	res := svc.SmartGreeting(context.Background(), id)
	assert.True(t, res.Success)
	assert.Equal(t, "Welcome back!", res.Greeting)
}
