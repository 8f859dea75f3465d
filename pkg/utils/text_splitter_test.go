package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{
			name:       "short text single chunk",
			text:       "hello world",
			chunkSize:  100,
			overlap:    10,
			wantChunks: 1,
		},
		{
			name:       "exact chunk size",
			text:       strings.Repeat("a", 100),
			chunkSize:  100,
			overlap:    10,
			wantChunks: 1,
		},
		{
			name:       "two chunks with overlap",
			text:       strings.Repeat("a", 150),
			chunkSize:  100,
			overlap:    20,
			wantChunks: 2,
		},
		{
			name:       "overlap larger than chunk falls back",
			text:       strings.Repeat("a", 150),
			chunkSize:  50,
			overlap:    60,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.chunkSize, tt.overlap)

			if len(chunks) != tt.wantChunks {
				t.Errorf("chunk count = %d, want %d", len(chunks), tt.wantChunks)
			}

			for i, c := range chunks {
				if len([]rune(c)) > tt.chunkSize {
					t.Errorf("chunk %d len = %d, exceeds chunkSize %d", i, len([]rune(c)), tt.chunkSize)
				}
			}
		})
	}
}

func TestSplitTextOverlapPreservesContext(t *testing.T) {
	text := strings.Repeat("x", 80) + strings.Repeat("y", 80)
	chunks := SplitText(text, 100, 20)

	if len(chunks) < 2 {
		t.Fatalf("chunk count = %d, want >= 2", len(chunks))
	}

	// The tail of chunk 0 must reappear at the head of chunk 1.
	tail := chunks[0][len(chunks[0])-20:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("chunk 1 does not start with the overlap of chunk 0")
	}
}

func TestSplitTextMultibyte(t *testing.T) {
	text := strings.Repeat("政", 120)
	chunks := SplitText(text, 100, 10)

	for i, c := range chunks {
		if !strings.HasPrefix(c, "政") {
			t.Errorf("chunk %d starts with a broken rune", i)
		}
	}
}
