package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/outbox/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// MockOutboxEventRepository is a mock implementation of OutboxEventRepository
type MockOutboxEventRepository struct {
	mock.Mock
}

func (m *MockOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEventProcessor is a mock implementation of EventProcessor
type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var testConfig = Config{Interval: 10 * time.Millisecond, BatchSize: 10, MaxRetries: 2}

type outboxMocks struct {
	txManager *MockTxManager
	repo      *MockOutboxEventRepository
	processor *MockEventProcessor
}

func setupOutbox(t *testing.T) (*OutboxUseCase, *outboxMocks) {
	t.Helper()
	m := &outboxMocks{
		txManager: &MockTxManager{},
		repo:      &MockOutboxEventRepository{},
		processor: &MockEventProcessor{},
	}
	uc, err := NewOutboxUseCase(testConfig, m.txManager, m.repo, m.processor, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return uc, m
}

func newPendingEvent() *domain.OutboxEvent {
	return domain.NewOutboxEvent("user.registered", []byte(`{}`), time.Now().UTC())
}

func TestNewOutboxUseCase(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", testConfig, false},
		{"zero interval", Config{BatchSize: 1, MaxRetries: 1}, true},
		{"zero batch", Config{Interval: time.Second, MaxRetries: 1}, true},
		{"zero retries", Config{Interval: time.Second, BatchSize: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, err := NewOutboxUseCase(tt.config, &MockTxManager{}, &MockOutboxEventRepository{},
				&MockEventProcessor{}, nil, nil)
			if tt.wantErr {
				assert.Nil(t, uc)
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config, uc.config)
		})
	}
}

func TestOutboxUseCase_ProcessEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("marks delivered events processed", func(t *testing.T) {
		uc, m := setupOutbox(t)
		first, second := newPendingEvent(), newPendingEvent()

		m.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{first, second}, nil)
		m.processor.On("Process", ctx, mock.Anything).Return(nil).Twice()
		m.repo.On("Update", ctx, mock.Anything).Return(nil).Twice()

		require.NoError(t, uc.ProcessEvents(ctx))

		for _, event := range []*domain.OutboxEvent{first, second} {
			assert.Equal(t, domain.OutboxEventStatusProcessed, event.Status)
			assert.NotNil(t, event.ProcessedAt)
		}
		m.repo.AssertExpectations(t)
		m.processor.AssertExpectations(t)
	})

	t.Run("no pending events", func(t *testing.T) {
		uc, m := setupOutbox(t)

		m.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{}, nil)

		require.NoError(t, uc.ProcessEvents(ctx))
		m.processor.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("repository error aborts the batch", func(t *testing.T) {
		uc, m := setupOutbox(t)
		dbErr := errors.New("connection refused")

		m.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", ctx, 10).Return(nil, dbErr)

		assert.ErrorIs(t, uc.ProcessEvents(ctx), dbErr)
	})

	t.Run("failed delivery stays pending until max retries", func(t *testing.T) {
		uc, m := setupOutbox(t)
		event := newPendingEvent()

		m.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{event}, nil)
		m.processor.On("Process", ctx, event).Return(errors.New("redis down"))
		m.repo.On("Update", ctx, event).Return(nil)

		require.NoError(t, uc.ProcessEvents(ctx))
		assert.Equal(t, domain.OutboxEventStatusPending, event.Status)
		assert.Equal(t, 1, event.Retries)
		require.NotNil(t, event.LastError)
		assert.Equal(t, "redis down", *event.LastError)

		require.NoError(t, uc.ProcessEvents(ctx))
		assert.Equal(t, domain.OutboxEventStatusFailed, event.Status)
		assert.Equal(t, 2, event.Retries)
	})

	t.Run("update error aborts the batch", func(t *testing.T) {
		uc, m := setupOutbox(t)
		event := newPendingEvent()
		updateErr := errors.New("deadlock")

		m.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{event, newPendingEvent()}, nil)
		m.processor.On("Process", ctx, mock.Anything).Return(nil)
		m.repo.On("Update", ctx, mock.Anything).Return(updateErr).Once()

		assert.ErrorIs(t, uc.ProcessEvents(ctx), updateErr)
		m.processor.AssertNumberOfCalls(t, "Process", 1)
	})
}

func TestOutboxUseCase_Start(t *testing.T) {
	t.Run("stops cleanly on cancellation", func(t *testing.T) {
		uc, m := setupOutbox(t)
		var calls atomic.Int32

		m.txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", mock.Anything, 10).
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return([]*domain.OutboxEvent{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- uc.Start(ctx) }()

		require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Start did not return after cancellation")
		}
	})

	t.Run("keeps polling after a failed batch", func(t *testing.T) {
		uc, m := setupOutbox(t)
		var calls atomic.Int32

		m.txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		m.repo.On("GetPendingEvents", mock.Anything, 10).
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(nil, errors.New("connection refused"))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- uc.Start(ctx) }()

		require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	})
}
