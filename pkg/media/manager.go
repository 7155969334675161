// Package media enforces upload limits on selected files and manages the
// preview URLs shown for them.
package media

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by a Manager used after Close.
var ErrClosed = errors.New("media: manager closed")

type slotState struct {
	files  []File
	urls   []string
	issued bool
}

// Manager tracks the selected files and preview URLs of each media slot.
type Manager struct {
	mu       sync.Mutex
	issuer   URLIssuer
	policies map[Slot]Policy
	slots    map[Slot]*slotState
	logger   *zap.Logger
	closed   bool
}

// Option customises a Manager.
type Option func(*Manager)

// WithPolicy overrides the policy of one slot.
func WithPolicy(slot Slot, policy Policy) Option {
	return func(m *Manager) {
		m.policies[slot] = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns a Manager issuing URLs through issuer. A nil issuer
// falls back to a MemoryIssuer.
func NewManager(issuer URLIssuer, options ...Option) *Manager {
	if issuer == nil {
		issuer = NewMemoryIssuer()
	}
	m := &Manager{
		issuer: issuer,
		policies: map[Slot]Policy{
			SlotPhotos: PhotoPolicy,
			SlotVideos: VideoPolicy,
		},
		slots:  make(map[Slot]*slotState),
		logger: zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(m)
		}
	}
	return m
}

// Policy returns the policy enforced for slot.
func (m *Manager) Policy(slot Slot) Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policies[slot]
}

// Select replaces the files of slot. A batch that breaks the slot policy, or
// for which a URL cannot be issued, is rejected whole and the slot keeps its
// previous files and URLs.
func (m *Manager) Select(slot Slot, files []File) error {
	if _, err := ParseSlot(string(slot)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if err := m.policies[slot].Check(files); err != nil {
		return err
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		u, err := m.issuer.Issue(f)
		if err != nil {
			for _, issued := range urls {
				m.issuer.Revoke(issued)
			}
			return fmt.Errorf("media: issue preview for %s: %w", f.Name, err)
		}
		urls = append(urls, u)
	}

	m.release(slot)
	m.slots[slot] = &slotState{
		files:  append([]File(nil), files...),
		urls:   urls,
		issued: true,
	}
	m.logger.Debug("media selected",
		zap.String("slot", string(slot)),
		zap.Int("files", len(files)),
	)
	return nil
}

// SetRemote shows already-uploaded media. Previously issued URLs for slot
// are revoked and its selected files dropped.
func (m *Manager) SetRemote(slot Slot, urls []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.release(slot)
	m.slots[slot] = &slotState{urls: append([]string(nil), urls...)}
}

// Previews returns the preview URLs of slot in selection order.
func (m *Manager) Previews(slot Slot) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state := m.slots[slot]; state != nil {
		return append([]string(nil), state.urls...)
	}
	return nil
}

// Files returns the local files selected for slot.
func (m *Manager) Files(slot Slot) []File {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state := m.slots[slot]; state != nil {
		return append([]File(nil), state.files...)
	}
	return nil
}

// Close revokes every issued URL. Further selections fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	for slot := range m.slots {
		m.release(slot)
	}
	m.closed = true
	return nil
}

func (m *Manager) release(slot Slot) {
	state := m.slots[slot]
	if state == nil {
		return
	}
	if state.issued {
		for _, u := range state.urls {
			m.issuer.Revoke(u)
		}
	}
	delete(m.slots, slot)
}
