package gateway

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/protocol"
	"github.com/aeolun/teamline/pkg/store"
)

// fakeSocket records everything written to it.
type fakeSocket struct {
	mu         sync.Mutex
	frames     []protocol.Envelope
	pings      int
	closed     bool
	failWrites bool
}

func (f *fakeSocket) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("write failed")
	}
	env, ok := v.(protocol.Envelope)
	if !ok {
		return errors.New("unexpected write type")
	}
	f.frames = append(f.frames, env)
	return nil
}

func (f *fakeSocket) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("write failed")
	}
	f.pings++
	return nil
}

func (f *fakeSocket) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) framesOfType(eventType string) []protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range f.frames {
		if env.Type == eventType {
			out = append(out, env)
		}
	}
	return out
}

func (f *fakeSocket) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestConn(userID int64) (*Conn, *fakeSocket) {
	sock := &fakeSocket{}
	return NewConn(userID, sock, time.Second), sock
}

// mockStore is an in-memory Store for gateway tests.
type mockStore struct {
	mu           sync.Mutex
	users        map[int64]*store.User
	members      map[int64][]int64 // conversationID -> member IDs
	admins       []int64
	tasks        map[int64]*store.Task
	calls        map[string]*store.Call
	participants map[string]map[int64]bool
	messages     []*store.Message
	nextMsgID    int64
}

func newMockStore() *mockStore {
	return &mockStore{
		users:        make(map[int64]*store.User),
		members:      make(map[int64][]int64),
		tasks:        make(map[int64]*store.Task),
		calls:        make(map[string]*store.Call),
		participants: make(map[string]map[int64]bool),
		nextMsgID:    1,
	}
}

func (m *mockStore) GetUser(userID int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *mockStore) AdminIDs() ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.admins...), nil
}

func (m *mockStore) ConversationMemberIDs(convID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.members[convID]...), nil
}

func (m *mockStore) IsConversationMember(convID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[convID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) InsertMessage(convID, authorID int64, content string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &store.Message{
		ID:             m.nextMsgID,
		ConversationID: convID,
		AuthorID:       authorID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	m.nextMsgID++
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *mockStore) UpdateMessage(messageID, authorID int64, content string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == messageID && msg.AuthorID == authorID {
			msg.Content = content
			now := time.Now()
			msg.EditedAt = &now
			return msg, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) GetTask(taskID int64) (*store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (m *mockStore) CreateCall(call *store.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[call.ID] = call
	m.participants[call.ID] = make(map[int64]bool)
	return nil
}

func (m *mockStore) GetCall(callID string) (*store.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *mockStore) EndCall(callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok || c.Status != store.CallStatusActive {
		return store.ErrNotFound
	}
	c.Status = store.CallStatusEnded
	return nil
}

func (m *mockStore) AddCallParticipant(callID string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.participants[callID]
	if !ok {
		set = make(map[int64]bool)
		m.participants[callID] = set
	}
	if set[userID] {
		return false, nil
	}
	set[userID] = true
	return true, nil
}

func (m *mockStore) RemoveCallParticipant(callID string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.participants[callID], userID)
	return nil
}

func (m *mockStore) CallParticipantIDs(callID string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.participants[callID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockStore) CallParticipantCount(callID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[callID]), nil
}

// recordingNotifier captures offline notification attempts.
type recordingNotifier struct {
	mu      sync.Mutex
	notices map[int64][]notify.Notification
	err     error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notices: make(map[int64][]notify.Notification)}
}

func (r *recordingNotifier) Notify(userID int64, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.notices[userID] = append(r.notices[userID], n)
	return nil
}

func (r *recordingNotifier) count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices[userID])
}

// testServer wires a gateway server over mocks without a listener.
func testServer(t *testing.T, st Store, notifier notify.Notifier) *Server {
	t.Helper()
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return New(DefaultConfig(), st, NewJWTVerifier("test-secret"), notifier, zap.NewNop(), nil)
}

// connect registers a fake connection for the identity and runs the
// presence handling a real handshake would.
func connect(s *Server, userID int64) (*Conn, *fakeSocket) {
	conn, sock := newTestConn(userID)
	cameOnline := s.registry.Register(conn)
	s.presence.HandleConnect(conn, cameOnline)
	return conn, sock
}

// disconnect unregisters a connection and runs presence handling.
func disconnect(s *Server, conn *Conn) {
	conn.Close()
	wentOffline := s.registry.Unregister(conn)
	s.presence.HandleDisconnect(conn.UserID(), wentOffline)
}

func mustEnvelope(t *testing.T, eventType string, payload interface{}) *protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}
	return &env
}
