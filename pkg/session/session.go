package session

import (
	"time"

	"cs-chatbot-be/pkg/rag"
)

// Resolution policies for chat requests that carry an unknown session id.
const (
	// ResolutionStrict rejects unknown ids.
	ResolutionStrict = "strict"
	// ResolutionLenient silently creates a replacement session; the
	// replacement id is always reported back to the caller.
	ResolutionLenient = "lenient"
)

// Session is one logical conversation. The Memory/ChatEngine pair is
// exclusive to this session and lives until the session is deleted.
type Session struct {
	ID         string
	Memory     *rag.Memory
	ChatEngine rag.ChatEngine

	CreatedAt  time.Time
	LastAccess time.Time

	// IsProcessing is true while an answer is being computed. BeginTurn
	// treats it as a turn lock; the expiry sweep skips sessions holding it.
	IsProcessing bool

	// IsAborted is the cooperative cancellation flag. It is advisory: an
	// in-flight turn stops the next time it polls the flag, never earlier.
	IsAborted bool
}

// Config tunes the session manager.
type Config struct {
	// Timeout is the idle time after which SweepExpired removes a session.
	Timeout time.Duration

	// MemoryTokenLimit caps the conversation history handed to the model.
	MemoryTokenLimit int

	// Resolution picks the policy for unknown supplied session ids.
	Resolution string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = time.Hour
	}
	if c.MemoryTokenLimit <= 0 {
		c.MemoryTokenLimit = 3000
	}
	if c.Resolution == "" {
		c.Resolution = ResolutionStrict
	}
	return c
}
