// Package audit records account and container lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per subject.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventAccountCreate     EventType = "account_create"
	EventAccountDelete     EventType = "account_delete"
	EventAccountElevate    EventType = "account_elevate"
	EventAccountPassword   EventType = "account_password"
	EventAssign            EventType = "assign"
	EventContainerCreate   EventType = "container_create"
	EventContainerStart    EventType = "container_start"
	EventContainerStop     EventType = "container_stop"
	EventContainerRestart  EventType = "container_restart"
	EventContainerDelete   EventType = "container_delete"
	EventContainerTune     EventType = "container_tune"
	EventContainerRegister EventType = "container_register"
	EventError             EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	Details   string    `json:"details,omitempty"`
}

// Recorder is what the coordinator needs to leave a trail.
type Recorder interface {
	LogEvent(eventType EventType, subject, details string) error
}

// Logger writes and reads audit events.
// Events are stored in {stateDir}/audit/{subject}.events.jsonl.
type Logger struct {
	stateDir string
}

// NewLogger creates a new audit logger rooted at stateDir.
func NewLogger(stateDir string) *Logger {
	return &Logger{stateDir: stateDir}
}

// eventPath returns the path to the JSONL event log for a subject. Usernames
// are operator input, so the join is confined to the audit directory.
func (l *Logger) eventPath(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("audit subject is empty")
	}
	root := filepath.Join(l.stateDir, "audit")
	path, err := securejoin.SecureJoin(root, subject+".events.jsonl")
	if err != nil {
		return "", fmt.Errorf("failed to resolve audit log for %q: %w", subject, err)
	}
	return path, nil
}

// Log appends an event to the subject's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path, err := l.eventPath(event.Subject)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, subject, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Subject:   subject,
		Details:   details,
	})
}

// Events reads all events for a subject in chronological order.
func (l *Logger) Events(subject string) ([]Event, error) {
	path, err := l.eventPath(subject)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the audit log for a subject.
func (l *Logger) Remove(subject string) error {
	path, err := l.eventPath(subject)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Discard is a Recorder that drops every event.
type Discard struct{}

func (Discard) LogEvent(EventType, string, string) error { return nil }
