package pitwall

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apexsignal/pitwall/internal/analysis"
	"github.com/apexsignal/pitwall/internal/ingest"
)

// Session is one uploaded set of timing exports, parsed and grouped by
// role. Tables are treated as immutable once stored; analyses only ever
// read them, so concurrent requests against the same session are safe.
type Session struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`

	Files map[ingest.Role]string `json:"files"`

	tables map[ingest.Role]*analysis.Table
}

func NewSession(name string) *Session {
	return &Session{
		ID:         uuid.New(),
		Name:       name,
		UploadedAt: time.Now(),
		Files:      make(map[ingest.Role]string),
		tables:     make(map[ingest.Role]*analysis.Table),
	}
}

func (s *Session) AddTable(role ingest.Role, filename string, table *analysis.Table) {
	s.Files[role] = filename
	s.tables[role] = table
}

func (s *Session) Table(role ingest.Role) (*analysis.Table, bool) {
	table, ok := s.tables[role]

	return table, ok
}

// SessionStore keeps uploaded sessions in memory for the lifetime of the
// process. There is deliberately no on-disk persistence; a session lives
// only as long as the server that parsed it.
type SessionStore struct {
	mutex    sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (ss *SessionStore) Add(session *Session) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	ss.sessions[session.ID] = session
}

func (ss *SessionStore) Get(id uuid.UUID) (*Session, bool) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	session, ok := ss.sessions[id]

	return session, ok
}

func (ss *SessionStore) Delete(id uuid.UUID) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	delete(ss.sessions, id)
}

func (ss *SessionStore) List() []*Session {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	sessions := make([]*Session, 0, len(ss.sessions))

	for _, session := range ss.sessions {
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UploadedAt.After(sessions[j].UploadedAt)
	})

	return sessions
}
