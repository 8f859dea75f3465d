package dto

// ChatStreamRequest starts one chat turn. SessionId is optional; when
// omitted a session is created and its id is streamed back first.
type ChatStreamRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionId string `json:"session_id,omitempty"`
}

// ChatStreamEvent is one SSE data line of the chat turn protocol.
// Type is one of: "session_id", "start", "content", "done", "aborted", "error".
type ChatStreamEvent struct {
	Type      string `json:"type"`
	SessionId string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
}

type CreateSessionRequest struct {
	// WithGreeting defaults to true when the body omits it.
	WithGreeting *bool `json:"with_greeting"`
}

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
	Message   string `json:"message"`
	Greeting  string `json:"greeting,omitempty"`
}

type SessionStatsResponse struct {
	ActiveSessions  int `json:"active_sessions"`
	CleanedSessions int `json:"cleaned_sessions"`
}

type DeleteSessionResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

type SessionStatusResponse struct {
	Exists       bool   `json:"exists"`
	SessionId    string `json:"session_id,omitempty"`
	IsProcessing bool   `json:"is_processing,omitempty"`
	IsAborted    bool   `json:"is_aborted,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	LastAccess   int64  `json:"last_access,omitempty"`
	Message      string `json:"message,omitempty"`
}

// SessionActionResponse covers abort and reset results.
type SessionActionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionId string `json:"session_id,omitempty"`
}

type SmartGreetingResponse struct {
	Success          bool   `json:"success"`
	Greeting         string `json:"greeting,omitempty"`
	Message          string `json:"message,omitempty"`
	FallbackGreeting string `json:"fallback_greeting,omitempty"`
	SessionId        string `json:"session_id,omitempty"`
}

type EscalateRequest struct {
	Reason string `json:"reason" validate:"required"`
}
