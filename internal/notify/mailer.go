// Package notify builds mail drafts announcing exported documents to
// clinicians and agencies. Drafts are created, never sent; a human
// reviews and sends them from the mail surface.
package notify

import (
	"context"
	"sync"
)

// Draft is one outgoing mail draft.
type Draft struct {
	To      string
	CC      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer is the mail surface drafts land on. Exists reports whether a
// draft with the same recipient and subject is already present, which
// is the idempotency key for re-runs.
type Mailer interface {
	Exists(ctx context.Context, to, subject string) (bool, error)
	CreateDraft(ctx context.Context, d Draft) error
}

// MemoryMailer is an in-memory Mailer for tests, with error injection.
type MemoryMailer struct {
	mu     sync.Mutex
	drafts []Draft

	// CreateErr, when set, is consulted before each CreateDraft.
	CreateErr func(d Draft) error
}

func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

func (m *MemoryMailer) Exists(ctx context.Context, to, subject string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.drafts {
		if d.To == to && d.Subject == subject {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryMailer) CreateDraft(ctx context.Context, d Draft) error {
	if m.CreateErr != nil {
		if err := m.CreateErr(d); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = append(m.drafts, d)
	return nil
}

// Drafts returns a snapshot of created drafts.
func (m *MemoryMailer) Drafts() []Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Draft, len(m.drafts))
	copy(out, m.drafts)
	return out
}

var _ Mailer = (*MemoryMailer)(nil)
