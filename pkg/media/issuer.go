package media

import (
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// URLIssuer hands out revocable preview URLs for local files.
type URLIssuer interface {
	Issue(f File) (string, error)
	Revoke(previewURL string)
}

// MemoryIssuer issues opaque preview:// URLs and tracks which are live. It
// is used when no preview server runs.
type MemoryIssuer struct {
	mu     sync.Mutex
	active map[string]File
}

var _ URLIssuer = (*MemoryIssuer)(nil)

// NewMemoryIssuer returns an empty issuer.
func NewMemoryIssuer() *MemoryIssuer {
	return &MemoryIssuer{active: make(map[string]File)}
}

// Issue implements URLIssuer.
func (m *MemoryIssuer) Issue(f File) (string, error) {
	u := "preview://" + uuid.NewString() + "/" + url.PathEscape(f.Name)
	m.mu.Lock()
	m.active[u] = f
	m.mu.Unlock()
	return u, nil
}

// Revoke implements URLIssuer.
func (m *MemoryIssuer) Revoke(previewURL string) {
	m.mu.Lock()
	delete(m.active, previewURL)
	m.mu.Unlock()
}

// Resolve returns the file behind a live URL.
func (m *MemoryIssuer) Resolve(previewURL string) (File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.active[previewURL]
	return f, ok
}

// Active reports how many URLs are live.
func (m *MemoryIssuer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
