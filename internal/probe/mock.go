package probe

import (
	"context"
	"sync"
	"time"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
)

// MockPinger is a mock implementation of Pinger for testing
type MockPinger struct {
	mu            sync.Mutex
	PingFunc      func(ctx context.Context, ipAddr string, timeout time.Duration) *float64
	CloseFunc     func() error
	PingCallCount int
	PingCalls     []PingCall
	Closed        bool
}

// PingCall records a call to Ping
type PingCall struct {
	IPAddr  string
	Timeout time.Duration
}

// NewMockPinger creates a new mock pinger with default behavior
func NewMockPinger() *MockPinger {
	return &MockPinger{
		PingFunc: func(_ context.Context, _ string, _ time.Duration) *float64 {
			// Default: return successful ping with 10ms latency
			latency := 10.0
			return &latency
		},
		PingCalls: make([]PingCall, 0),
	}
}

// NewScriptedPinger creates a mock pinger that replays the given per-echo
// results in order (nil meaning failure), then fails any further echoes
func NewScriptedPinger(results ...*float64) *MockPinger {
	var mu sync.Mutex
	i := 0
	return &MockPinger{
		PingFunc: func(_ context.Context, _ string, _ time.Duration) *float64 {
			mu.Lock()
			defer mu.Unlock()
			if i >= len(results) {
				return nil
			}
			r := results[i]
			i++
			return r
		},
		PingCalls: make([]PingCall, 0),
	}
}

// Ping implements the Pinger interface
func (m *MockPinger) Ping(ctx context.Context, ipAddr string, timeout time.Duration) *float64 {
	m.mu.Lock()
	m.PingCallCount++
	m.PingCalls = append(m.PingCalls, PingCall{IPAddr: ipAddr, Timeout: timeout})
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ipAddr, timeout)
	}
	return nil
}

// Close implements the Pinger interface
func (m *MockPinger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// GetPingCallCount returns the number of times Ping was called
func (m *MockPinger) GetPingCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingCallCount
}

// MockTracer is a mock implementation of Tracer for testing
type MockTracer struct {
	mu             sync.Mutex
	TraceFunc      func(ctx context.Context, ipAddr string, timeout time.Duration) (int, error)
	CloseFunc      func() error
	TraceCallCount int
	TraceCalls     []TraceCall
	Closed         bool
}

// TraceCall records a call to TraceHops
type TraceCall struct {
	IPAddr  string
	Timeout time.Duration
}

// NewMockTracer creates a new mock tracer with default behavior
func NewMockTracer() *MockTracer {
	return &MockTracer{
		TraceFunc: func(_ context.Context, _ string, _ time.Duration) (int, error) {
			// Default: report nine intermediate hops
			return 9, nil
		},
		TraceCalls: make([]TraceCall, 0),
	}
}

// TraceHops implements the Tracer interface
func (m *MockTracer) TraceHops(ctx context.Context, ipAddr string, timeout time.Duration) (int, error) {
	m.mu.Lock()
	m.TraceCallCount++
	m.TraceCalls = append(m.TraceCalls, TraceCall{IPAddr: ipAddr, Timeout: timeout})
	fn := m.TraceFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ipAddr, timeout)
	}
	return 0, nil
}

// Close implements the Tracer interface
func (m *MockTracer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// GetTraceCallCount returns the number of times TraceHops was called
func (m *MockTracer) GetTraceCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TraceCallCount
}

// MockFactory is a mock implementation of Factory for testing
type MockFactory struct {
	mu       sync.Mutex
	Pinger   Pinger
	Tracer   Tracer
	PingErr  error
	TraceErr error
}

// NewMockFactory creates a factory handing out the given mock instances
func NewMockFactory(p Pinger, t Tracer) *MockFactory {
	return &MockFactory{Pinger: p, Tracer: t}
}

// CreatePinger implements the Factory interface
func (f *MockFactory) CreatePinger(_ addr.IPVersion) (Pinger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PingErr != nil {
		return nil, f.PingErr
	}
	return f.Pinger, nil
}

// CreateTracer implements the Factory interface
func (f *MockFactory) CreateTracer(_ addr.IPVersion) (Tracer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TraceErr != nil {
		return nil, f.TraceErr
	}
	return f.Tracer, nil
}
