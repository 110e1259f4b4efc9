package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeout is returned when handlers do not finish within the shutdown timeout
var ErrTimeout = errors.New("shutdown timeout exceeded")

// Manager handles graceful shutdown coordination
type Manager struct {
	logger         *logrus.Logger
	handlers       []Handler
	timeout        time.Duration
	mu             sync.Mutex
	isShuttingDown bool
}

// Handler is a function that performs cleanup during shutdown
type Handler func(ctx context.Context) error

// NewManager creates a new shutdown manager
func NewManager(timeout time.Duration, logger *logrus.Logger) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterHandler adds a shutdown handler to be called during shutdown
func (m *Manager) RegisterHandler(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wrappedHandler := func(ctx context.Context) error {
		m.logger.WithField("handler", name).Info("Executing shutdown handler")
		start := time.Now()

		err := handler(ctx)

		duration := time.Since(start)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"handler":  name,
				"duration": duration.Seconds(),
				"error":    err.Error(),
			}).Error("Shutdown handler failed")
			return fmt.Errorf("%s: %w", name, err)
		}

		m.logger.WithFields(logrus.Fields{
			"handler":  name,
			"duration": duration.Seconds(),
		}).Info("Shutdown handler completed")
		return nil
	}

	m.handlers = append(m.handlers, wrappedHandler)
}

// Shutdown runs all registered handlers concurrently and waits for them,
// at most for the configured timeout. Only the first call does any work.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.isShuttingDown {
		m.mu.Unlock()
		return nil
	}
	m.isShuttingDown = true
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	m.logger.Info("Starting graceful shutdown")
	start := time.Now()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(handlers))
	for i, handler := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = handler(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		err := errors.Join(errs...)
		fields := logrus.Fields{"duration": time.Since(start).Seconds()}
		if err != nil {
			m.logger.WithFields(fields).WithError(err).Warn("Shutdown completed with errors")
		} else {
			m.logger.WithFields(fields).Info("Shutdown completed successfully")
		}
		return err
	case <-ctx.Done():
		m.logger.WithFields(logrus.Fields{
			"timeout": m.timeout.Seconds(),
		}).Error("Shutdown timeout exceeded")
		// handlers observe ctx and return on their own
		<-done
		return ErrTimeout
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isShuttingDown
}
