package container

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vendora/backend/internal/alerts"
	"github.com/vendora/backend/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func TestContainerValidateMissingDeps(t *testing.T) {
	c := New()

	err := c.Validate()
	assert.Error(t, err)

	var initErr *InitializationError
	assert.True(t, errors.As(err, &initErr))
	assert.Contains(t, initErr.MissingDeps, "database (DB)")
	assert.Contains(t, initErr.MissingDeps, "auth service")
	assert.Contains(t, initErr.MissingDeps, "realtime handler")
	assert.Contains(t, initErr.MissingDeps, "autosave manager")
}

func TestContainerSettersAndGetters(t *testing.T) {
	c := New()

	am := alerts.NewAlertManager()
	ev := alerts.NewEvaluator(am)
	l := zap.NewNop()

	c.WithLogger(l).WithAlertManager(am).WithAlertEvaluator(ev)

	assert.Same(t, l, c.Logger())
	assert.Same(t, am, c.AlertManager())
	assert.Same(t, ev, c.AlertEvaluator())

	// Unset logger falls back to the global
	assert.Same(t, logger.Log, New().Logger())
}

func TestContainerCleanupOrder(t *testing.T) {
	c := New()

	var order []string
	c.OnCleanup(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	c.OnCleanup(func(ctx context.Context) error {
		order = append(order, "second")
		return errors.New("cleanup failed")
	})
	c.OnCleanup(func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	err := c.Cleanup(context.Background())
	assert.NoError(t, err)

	// LIFO, and a failing hook does not stop the rest
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestMockContainerOverrides(t *testing.T) {
	mock := NewMock()

	mock.Override("payment_gateway", "stub")
	val, ok := mock.GetOverride("payment_gateway")
	assert.True(t, ok)
	assert.Equal(t, "stub", val)

	_, ok = mock.GetOverride("missing")
	assert.False(t, ok)

	assert.NoError(t, mock.Clean(context.Background()))
}
