package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/diagnostic-versions/internal/config"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(pgxmock.NewRows([]string{"d", "draft", "final", "active"}).AddRow(1, 1, 1, 1))

	checker := NewChecker(NewCollector(mock), config.MonitoringConfig{CheckIntervalSecs: 3600})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	// Let the initial refresh run, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChecker_DefaultInterval(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(context.Canceled)

	checker := NewChecker(NewCollector(mock), config.MonitoringConfig{})
	assert.NotNil(t, checker)

	// Start with a cancelled context to verify it returns without panicking.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}
