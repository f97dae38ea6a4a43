package system

import (
	"context"
	"strings"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command patterns to responses.
	// Key format: "command arg1 arg2..."; the longest matching prefix wins.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// InteractiveErr is returned by ExecuteInteractive if set.
	InteractiveErr error
}

// MockCommand records an executed command.
type MockCommand struct {
	Name string
	Args []string
}

// String returns the command line joined by spaces.
func (c MockCommand) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse adds a response for a specific command pattern.
func (m *MockExecutor) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Name: name, Args: args}
	m.Commands = append(m.Commands, cmd)

	resp := m.lookup(cmd)
	return resp.Output, resp.Err
}

func (m *MockExecutor) ExecuteInteractive(ctx context.Context, name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, MockCommand{Name: name, Args: args})

	return m.InteractiveErr
}

// lookup matches the longest word-prefix of the command line. Caller holds mu.
func (m *MockExecutor) lookup(cmd MockCommand) MockResponse {
	words := append([]string{cmd.Name}, cmd.Args...)
	for n := len(words); n > 0; n-- {
		if resp, ok := m.Responses[strings.Join(words[:n], " ")]; ok {
			return resp
		}
	}
	return m.DefaultResponse
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// CommandLines returns every recorded command as a joined string.
func (m *MockExecutor) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		lines[i] = c.String()
	}
	return lines
}

// Reset clears all recorded commands.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
}
