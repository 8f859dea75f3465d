package nats

import (
	"strings"
	"testing"

	"cs-chatbot-be/pkg/events"
)

// subjectMatches applies NATS token rules: "*" matches exactly one token,
// ">" matches all remaining tokens.
func subjectMatches(filter, subject string) bool {
	ft := strings.Split(filter, ".")
	st := strings.Split(subject, ".")

	for i, tok := range ft {
		if tok == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(ft) == len(st)
}

func TestSubjectFor(t *testing.T) {
	ev := events.NewSessionEvent(events.TypeSessionCreated, "abc")
	if got := SubjectFor(ev); got != "events.SESSION_CREATED" {
		t.Errorf("SubjectFor = %q, want events.SESSION_CREATED", got)
	}
}

func TestAllEventsSubjectCoversEveryEventType(t *testing.T) {
	published := []events.Event{
		events.NewSessionEvent(events.TypeSessionCreated, "a"),
		events.NewSessionEvent(events.TypeSessionDeleted, "a"),
		events.NewSessionEvent(events.TypeSessionExpired, ""),
		events.NewSessionEvent(events.TypeSessionAborted, "a"),
		events.NewDocumentIndexedEvent("doc-1", 3),
	}

	for _, ev := range published {
		subject := SubjectFor(ev)
		if !subjectMatches(AllEventsSubject, subject) {
			t.Errorf("feed filter %q does not match published subject %q", AllEventsSubject, subject)
		}
	}
}

func TestSubjectMatchingRules(t *testing.T) {
	tests := []struct {
		filter  string
		subject string
		want    bool
	}{
		{"events.>", "events.SESSION_CREATED", true},
		{"events.>", "events.a.b", true},
		{"events.>", "events", false},
		{"events.*", "events.SESSION_CREATED", true},
		{"events.*", "events.a.b", false},
		// "*" is only a wildcard as a complete token; embedded in a token
		// it matches nothing.
		{"events.SESSION_*", "events.SESSION_CREATED", false},
	}

	for _, tt := range tests {
		if got := subjectMatches(tt.filter, tt.subject); got != tt.want {
			t.Errorf("subjectMatches(%q, %q) = %v, want %v", tt.filter, tt.subject, got, tt.want)
		}
	}
}
