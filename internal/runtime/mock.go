package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// Containers tracks the state of mock containers
	Containers map[string]*ContainerInfo

	// LogOutput maps container names to predefined log output
	LogOutput map[string]string

	// Errors allows injecting errors for specific operations. Keys are
	// either "Method" or "Method:name"; the named form wins.
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Containers: make(map[string]*ContainerInfo),
		LogOutput:  make(map[string]string),
		Errors:     make(map[string]error),
		CallLog:    make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

func (m *MockRuntime) errFor(method, name string) error {
	if err, ok := m.Errors[method+":"+name]; ok {
		return err
	}
	return m.Errors[method]
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// AddContainer adds a container to the mock
func (m *MockRuntime) AddContainer(name string, status ContainerStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers[name] = &ContainerInfo{
		Name:   name,
		Status: status,
		Image:  "ptvnc",
	}
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Reset clears all state
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers = make(map[string]*ContainerInfo)
	m.LogOutput = make(map[string]string)
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return "mock"
}

// Create creates a new container
func (m *MockRuntime) Create(ctx context.Context, opts CreateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create", opts)

	if err := m.errFor("Create", opts.Name); err != nil {
		return err
	}
	if _, ok := m.Containers[opts.Name]; ok {
		return fmt.Errorf("container name %q is already in use", opts.Name)
	}

	status := StatusStopped
	if opts.Start {
		status = StatusRunning
	}

	info := &ContainerInfo{
		Name:   opts.Name,
		Status: status,
		Image:  opts.Image,
	}
	if opts.Memory != "" {
		if b, err := ParseMemory(opts.Memory); err == nil {
			info.MemoryBytes = b
		}
	}
	if opts.CPUs != "" {
		if c, err := ParseCPUs(opts.CPUs); err == nil {
			info.NanoCPUs = int64(c * 1e9)
		}
	}
	m.Containers[opts.Name] = info

	return nil
}

func (m *MockRuntime) setStatus(method, name string, status ContainerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(method, name)

	if err := m.errFor(method, name); err != nil {
		return err
	}

	if container, ok := m.Containers[name]; ok {
		container.Status = status
		return nil
	}

	return fmt.Errorf("no such container: %s", name)
}

// Start starts an existing container
func (m *MockRuntime) Start(ctx context.Context, name string) error {
	return m.setStatus("Start", name, StatusRunning)
}

// Stop stops a running container
func (m *MockRuntime) Stop(ctx context.Context, name string) error {
	return m.setStatus("Stop", name, StatusStopped)
}

// Restart restarts a container
func (m *MockRuntime) Restart(ctx context.Context, name string) error {
	return m.setStatus("Restart", name, StatusRunning)
}

// Destroy stops and removes a container
func (m *MockRuntime) Destroy(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Destroy", name)

	if err := m.errFor("Destroy", name); err != nil {
		return err
	}

	delete(m.Containers, name)
	return nil
}

// Status returns detailed status of a container
func (m *MockRuntime) Status(ctx context.Context, name string) (*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Status", name)

	if err := m.errFor("Status", name); err != nil {
		return nil, err
	}

	if container, ok := m.Containers[name]; ok {
		c := *container
		return &c, nil
	}

	return &ContainerInfo{Name: name, Status: StatusNotFound}, nil
}

// List returns all containers whose names start with prefix, sorted by name
func (m *MockRuntime) List(ctx context.Context, prefix string) ([]*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List", prefix)

	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}

	var containers []*ContainerInfo
	for name, container := range m.Containers {
		if strings.HasPrefix(name, prefix) {
			c := *container
			containers = append(containers, &c)
		}
	}
	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Name < containers[j].Name
	})

	return containers, nil
}

// Logs returns predefined log output
func (m *MockRuntime) Logs(ctx context.Context, name string, tail int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Logs", name, tail)

	if err := m.errFor("Logs", name); err != nil {
		return "", err
	}

	return m.LogOutput[name], nil
}

// FollowLogs records the call
func (m *MockRuntime) FollowLogs(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FollowLogs", name)

	return m.errFor("FollowLogs", name)
}

// UpdateMemory sets the memory limit on the mock container
func (m *MockRuntime) UpdateMemory(ctx context.Context, name string, bytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateMemory", name, bytes)

	if err := m.errFor("UpdateMemory", name); err != nil {
		return err
	}
	container, ok := m.Containers[name]
	if !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	container.MemoryBytes = bytes
	return nil
}

// UpdateCPUs sets the CPU limit on the mock container
func (m *MockRuntime) UpdateCPUs(ctx context.Context, name string, cpus float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateCPUs", name, cpus)

	if err := m.errFor("UpdateCPUs", name); err != nil {
		return err
	}
	container, ok := m.Containers[name]
	if !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	container.NanoCPUs = int64(cpus * 1e9)
	return nil
}

// Ensure MockRuntime implements Runtime and LogFollower
var (
	_ Runtime     = (*MockRuntime)(nil)
	_ LogFollower = (*MockRuntime)(nil)
)
