package registry

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
)

// MockRegistry is an in-memory Registry for testing
type MockRegistry struct {
	mu sync.Mutex

	accounts    map[string]*mockAccount
	connections map[string]int64
	connNames   map[int64]string
	params      map[int64]map[string]string
	grants      map[int64]map[int64]bool
	nextID      int64

	// Errors allows injecting errors for specific operations. Keys are
	// either "Method" or "Method:key" where key is the username,
	// connection name or decimal id the method receives.
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall
}

type mockAccount struct {
	entityID int64
	secret   string
	elevated bool
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRegistry creates an empty mock registry
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{
		accounts:    make(map[string]*mockAccount),
		connections: make(map[string]int64),
		connNames:   make(map[int64]string),
		params:      make(map[int64]map[string]string),
		grants:      make(map[int64]map[int64]bool),
		Errors:      make(map[string]error),
	}
}

func (m *MockRegistry) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

func (m *MockRegistry) errFor(method string, key string) error {
	if err, ok := m.Errors[method+":"+key]; ok {
		return err
	}
	return m.Errors[method]
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// SetError sets an error to be returned for a specific operation
func (m *MockRegistry) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// AddConnection registers a connection and returns its id
func (m *MockRegistry) AddConnection(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.connections[name] = m.nextID
	m.connNames[m.nextID] = name
	return m.nextID
}

// AddAccount creates an account directly and returns its entity id
func (m *MockRegistry) AddAccount(username string, elevated bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.accounts[username] = &mockAccount{entityID: m.nextID, secret: "secret", elevated: elevated}
	return m.nextID
}

// Held returns the connection names an account holds, sorted
func (m *MockRegistry) Held(username string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[username]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m.grants[acct.entityID]))
	for id := range m.grants[acct.entityID] {
		names = append(names, m.connNames[id])
	}
	sort.Strings(names)
	return names
}

// HasAccount reports whether an account exists
func (m *MockRegistry) HasAccount(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[username]
	return ok
}

// IsElevated reports an account's privilege flag
func (m *MockRegistry) IsElevated(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[username]
	return ok && acct.elevated
}

// Secret returns the credential an account was created with
func (m *MockRegistry) Secret(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[username]; ok {
		return acct.secret
	}
	return ""
}

// GetCallsFor returns all calls for a specific method
func (m *MockRegistry) GetCallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

func (m *MockRegistry) FindAccountEntity(ctx context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindAccountEntity", username)

	if err := m.errFor("FindAccountEntity", username); err != nil {
		return 0, err
	}
	acct, ok := m.accounts[username]
	if !ok {
		return 0, errors.NotFound("account", username)
	}
	return acct.entityID, nil
}

func (m *MockRegistry) FindConnectionID(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindConnectionID", name)

	if err := m.errFor("FindConnectionID", name); err != nil {
		return 0, err
	}
	id, ok := m.connections[name]
	if !ok {
		return 0, errors.NotFound("connection", name)
	}
	return id, nil
}

func (m *MockRegistry) RegisterConnection(ctx context.Context, conn VNCConnection) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RegisterConnection", conn.Name)

	if err := m.errFor("RegisterConnection", conn.Name); err != nil {
		return 0, false, err
	}
	if err := conn.validate(); err != nil {
		return 0, false, err
	}
	if id, ok := m.connections[conn.Name]; ok {
		return id, false, nil
	}
	m.nextID++
	m.connections[conn.Name] = m.nextID
	m.connNames[m.nextID] = conn.Name
	m.params[m.nextID] = conn.Parameters()
	return m.nextID, true, nil
}

// Parameters returns the parameters a connection was registered with
func (m *MockRegistry) Parameters(name string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params[m.connections[name]]
}

func (m *MockRegistry) ListConnections(ctx context.Context) ([]Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListConnections")

	if err := m.errFor("ListConnections", ""); err != nil {
		return nil, err
	}
	conns := make([]Connection, 0, len(m.connections))
	for name, id := range m.connections {
		conns = append(conns, Connection{ID: id, Name: name})
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Name < conns[j].Name })
	return conns, nil
}

func (m *MockRegistry) held(entityID int64) []Connection {
	conns := make([]Connection, 0, len(m.grants[entityID]))
	for id := range m.grants[entityID] {
		conns = append(conns, Connection{ID: id, Name: m.connNames[id]})
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Name < conns[j].Name })
	return conns
}

func (m *MockRegistry) ListAssignments(ctx context.Context, entityID int64) ([]Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListAssignments", entityID)

	if err := m.errFor("ListAssignments", idKey(entityID)); err != nil {
		return nil, err
	}
	return m.held(entityID), nil
}

func (m *MockRegistry) Grant(ctx context.Context, entityID, connectionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Grant", entityID, connectionID)

	if err := m.errFor("Grant", m.connNames[connectionID]); err != nil {
		return false, err
	}
	if m.grants[entityID] == nil {
		m.grants[entityID] = make(map[int64]bool)
	}
	if m.grants[entityID][connectionID] {
		return false, nil
	}
	m.grants[entityID][connectionID] = true
	return true, nil
}

func (m *MockRegistry) RevokeAll(ctx context.Context, entityID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RevokeAll", entityID)

	if err := m.errFor("RevokeAll", idKey(entityID)); err != nil {
		return 0, err
	}
	n := len(m.grants[entityID])
	delete(m.grants, entityID)
	return n, nil
}

func (m *MockRegistry) RevokeConnection(ctx context.Context, connectionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RevokeConnection", connectionID)

	if err := m.errFor("RevokeConnection", m.connNames[connectionID]); err != nil {
		return 0, err
	}
	n := 0
	for _, held := range m.grants {
		if held[connectionID] {
			delete(held, connectionID)
			n++
		}
	}
	return n, nil
}

func (m *MockRegistry) CreateAccount(ctx context.Context, username, secret string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateAccount", username)

	if err := m.errFor("CreateAccount", username); err != nil {
		return 0, err
	}
	if username == "" {
		return 0, errors.Validation("username is required")
	}
	if secret == "" {
		return 0, errors.Validation("password is required for %s", username)
	}
	if _, ok := m.accounts[username]; ok {
		return 0, errors.AlreadyExists("account", username)
	}
	m.nextID++
	m.accounts[username] = &mockAccount{entityID: m.nextID, secret: secret}
	return m.nextID, nil
}

func (m *MockRegistry) DeleteAccount(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteAccount", username)

	if err := m.errFor("DeleteAccount", username); err != nil {
		return err
	}
	acct, ok := m.accounts[username]
	if !ok {
		return errors.NotFound("account", username)
	}
	delete(m.grants, acct.entityID)
	delete(m.accounts, username)
	return nil
}

func (m *MockRegistry) ResetPassword(ctx context.Context, username, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ResetPassword", username)

	if err := m.errFor("ResetPassword", username); err != nil {
		return err
	}
	if secret == "" {
		return errors.Validation("password is required for %s", username)
	}
	acct, ok := m.accounts[username]
	if !ok {
		return errors.NotFound("account", username)
	}
	acct.secret = secret
	return nil
}

func (m *MockRegistry) SetElevated(ctx context.Context, username string, elevated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetElevated", username, elevated)

	if err := m.errFor("SetElevated", username); err != nil {
		return err
	}
	acct, ok := m.accounts[username]
	if !ok {
		return errors.NotFound("account", username)
	}
	acct.elevated = elevated
	return nil
}

func (m *MockRegistry) ListAccounts(ctx context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListAccounts")

	if err := m.errFor("ListAccounts", ""); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(m.accounts))
	for name, acct := range m.accounts {
		accounts = append(accounts, Account{
			EntityID:    acct.entityID,
			Username:    name,
			Elevated:    acct.elevated,
			Connections: m.held(acct.entityID),
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

func (m *MockRegistry) CountAccounts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CountAccounts")

	if err := m.errFor("CountAccounts", ""); err != nil {
		return 0, err
	}
	return len(m.accounts), nil
}

// Ensure MockRegistry implements Registry and ConnectionRegistrar
var (
	_ Registry            = (*MockRegistry)(nil)
	_ ConnectionRegistrar = (*MockRegistry)(nil)
)
