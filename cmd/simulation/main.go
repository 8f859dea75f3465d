package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api/chat/v1"

// Simplified DTOs for the script
type CreateSessionResponse struct {
	Data struct {
		SessionId string `json:"session_id"`
		Greeting  string `json:"greeting"`
	} `json:"data"`
}

type StreamRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id,omitempty"`
}

type StreamEvent struct {
	Type      string `json:"type"`
	SessionId string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
}

var (
	userColor  = color.New(color.FgCyan, color.Bold)
	botColor   = color.New(color.FgGreen)
	metaColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
)

func main() {
	fmt.Println("=== Support Chat Streaming Simulation ===")

	sessionID, greeting, err := createSession()
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	metaColor.Printf("Session Created: %s\n", sessionID)
	botColor.Printf("BOT: %s\n", greeting)

	questions := []string{
		"My order arrived cold, can I get a refund?",
		"How long does delivery usually take?",
	}

	for _, q := range questions {
		userColor.Printf("\nUSER: %s\n", q)

		start := time.Now()
		if err := streamChat(sessionID, q); err != nil {
			errorColor.Printf("Error: %v\n", err)
		}
		metaColor.Printf("(turn took %v)\n", time.Since(start).Round(time.Millisecond))
	}

	// Abort demo: fire a turn and cancel it mid-stream.
	userColor.Printf("\nUSER: Tell me everything about all your policies in detail\n")
	go func() {
		time.Sleep(300 * time.Millisecond)
		if err := abortSession(sessionID); err != nil {
			errorColor.Printf("Abort request failed: %v\n", err)
		} else {
			metaColor.Println("(abort requested)")
		}
	}()
	if err := streamChat(sessionID, "Tell me everything about all your policies in detail"); err != nil {
		errorColor.Printf("Error: %v\n", err)
	}
}

func createSession() (string, string, error) {
	resp, err := http.Post(baseURL+"/session", "application/json", strings.NewReader("{}"))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", "", err
	}
	return res.Data.SessionId, res.Data.Greeting, nil
}

// streamChat reads the SSE feed and repaints the bot line as cumulative
// content events arrive.
func streamChat(sessionID, text string) error {
	payload, _ := json.Marshal(StreamRequest{Message: text, SessionId: sessionID})

	req, _ := http.NewRequest("POST", baseURL+"/stream", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lastContent string
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(line[len("data: "):]), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "session_id":
			metaColor.Printf("(server assigned session %s)\n", ev.SessionId)
		case "start":
			metaColor.Printf("(%s)\n", ev.Message)
		case "content":
			// Cumulative: print only the newly appended tail.
			botColor.Print(strings.TrimPrefix(ev.Content, lastContent))
			lastContent = ev.Content
		case "done":
			fmt.Println()
			return nil
		case "aborted":
			fmt.Println()
			metaColor.Printf("(stream aborted: %s)\n", ev.Message)
			return nil
		case "error":
			fmt.Println()
			return fmt.Errorf("stream error: %s", ev.Message)
		}
	}
	return scanner.Err()
}

func abortSession(sessionID string) error {
	resp, err := http.Post(baseURL+"/abort/"+sessionID, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 && resp.StatusCode != 409 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
