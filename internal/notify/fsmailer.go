package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/careops/payledger/internal/normalize"
)

// FSMailer persists drafts as message files under a drafts directory,
// one file per (recipient, subject) pair. It stands in for a real mail
// surface; the file name doubles as the idempotency key.
type FSMailer struct {
	Root string
}

func NewFSMailer(root string) *FSMailer {
	return &FSMailer{Root: filepath.Join(root, "drafts")}
}

func (m *FSMailer) path(to, subject string) string {
	name := normalize.SafeFileName(to+" "+subject) + ".eml"
	return filepath.Join(m.Root, name)
}

func (m *FSMailer) Exists(ctx context.Context, to, subject string) (bool, error) {
	_, err := os.Stat(m.path(to, subject))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat draft for %s: %w", to, err)
}

func (m *FSMailer) CreateDraft(ctx context.Context, d Draft) error {
	if err := os.MkdirAll(m.Root, 0o755); err != nil {
		return fmt.Errorf("create drafts dir: %w", err)
	}
	msg := fmt.Sprintf("To: %s\r\nCc: %s\r\nReply-To: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		d.To, d.CC, d.ReplyTo, d.Subject, d.Body)
	if err := os.WriteFile(m.path(d.To, d.Subject), []byte(msg), 0o644); err != nil {
		return fmt.Errorf("write draft for %s: %w", d.To, err)
	}
	return nil
}

var _ Mailer = (*FSMailer)(nil)
