package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestCollector_Collect(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM cfg_active_versions`).
		WillReturnRows(pgxmock.NewRows([]string{"d", "draft", "final", "active"}).AddRow(3, 4, 5, 2))

	c := NewCollector(mock)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return at }

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Snapshot{Diagnostics: 3, DraftVersions: 4, FinalizedVersions: 5, ActiveDiagnostics: 2, CollectedAt: at}, snap)

	Publish(snap)
	assert.InDelta(t, 4, testutil.ToFloat64(VersionsByStatus.WithLabelValues("draft")), 0.001)
	assert.InDelta(t, 5, testutil.ToFloat64(VersionsByStatus.WithLabelValues("finalized")), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(ActiveDiagnostics), 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollector_Error(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("down"))

	_, err := NewCollector(mock).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: collect catalog counts")
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "version_frozen", Result(apperr.New(apperr.KindVersionFrozen, "")))
	assert.Equal(t, "unexpected_error", Result(errors.New("boom")))
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("finalize", "ok"))
	Observe("finalize", nil)
	assert.InDelta(t, before+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("finalize", "ok")), 0.001)
}
