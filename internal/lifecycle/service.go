// Package lifecycle implements the version operations around the
// structure import: create, prompt edits, finalize, activate, and the
// read models the admin and form endpoints serve.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/audit"
	"github.com/sells-group/diagnostic-versions/internal/db"
)

// Service runs lifecycle operations against the store.
type Service struct {
	pool   db.Pool
	ledger *audit.Ledger
}

// NewService creates a Service. Mutations are recorded through ledger.
func NewService(pool db.Pool, ledger *audit.Ledger) *Service {
	return &Service{pool: pool, ledger: ledger}
}

// Summary is the snapshot row count reported by finalize and detail views.
type Summary struct {
	Questions int `json:"questions" yaml:"questions"`
	Options   int `json:"options" yaml:"options"`
	Outcomes  int `json:"outcomes" yaml:"outcomes"`
}

func frozen(versionID int64) error {
	return apperr.New(apperr.KindVersionFrozen, fmt.Sprintf("version %d is finalized", versionID))
}

// optional trims s and maps blank to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
