package session

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a testify mock of transport.Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, frame []byte) (int, error) {
	args := m.Called(ctx, frame)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) Receive(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	frame, _ := args.Get(0).([]byte)
	return frame, args.Error(1)
}

func (m *MockTransport) Close() error {
	return m.Called().Error(0)
}
