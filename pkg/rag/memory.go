package rag

import (
	"sync"

	"cs-chatbot-be/pkg/llm"
)

// Memory is the conversation buffer owned by exactly one session. The
// session store creates it, the answer engine appends to it during a chat
// call, and nothing else touches it. It lives until the session is deleted.
type Memory struct {
	mu         sync.Mutex
	tokenLimit int
	messages   []llm.Message
}

// NewMemory creates an empty conversation buffer. tokenLimit caps how much
// history is handed to the model; older turns are dropped first.
func NewMemory(tokenLimit int) *Memory {
	if tokenLimit <= 0 {
		tokenLimit = 3000
	}
	return &Memory{
		tokenLimit: tokenLimit,
	}
}

// Append records one turn.
func (m *Memory) Append(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, llm.Message{Role: role, Content: content})
}

// History returns a copy of the retained turns, newest-last, trimmed from
// the front so the estimated token count stays under the limit.
func (m *Memory) History() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Walk backwards accumulating the token estimate so the most recent
	// turns always survive trimming.
	budget := m.tokenLimit
	start := len(m.messages)
	for i := len(m.messages) - 1; i >= 0; i-- {
		cost := estimateTokens(m.messages[i].Content)
		if cost > budget {
			break
		}
		budget -= cost
		start = i
	}

	out := make([]llm.Message, len(m.messages)-start)
	copy(out, m.messages[start:])
	return out
}

// Len returns the number of retained turns.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// estimateTokens approximates token usage at ~4 characters per token.
// Good enough for a trimming heuristic; exact counts need the tokenizer.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 {
		n = 1
	}
	return n
}
