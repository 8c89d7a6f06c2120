package job

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/triggers/engine/trigger"
	"github.com/stretchr/testify/mock"
)

type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Complete(ctx context.Context, job *Job, result map[string]any) error {
	return m.Called(ctx, job, result).Error(0)
}

func (m *MockReporter) Fail(ctx context.Context, job *Job, message string, retries int) error {
	return m.Called(ctx, job, message, retries).Error(0)
}

type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) UpdateStatus(ctx context.Context, entityID, status string) error {
	return m.Called(ctx, entityID, status).Error(0)
}

func (m *MockEntityStore) UpdateAssignee(ctx context.Context, entityID string, assigneeID *string) error {
	return m.Called(ctx, entityID, assigneeID).Error(0)
}

func (m *MockEntityStore) FindOne(ctx context.Context, entityID string) (map[string]any, error) {
	args := m.Called(ctx, entityID)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

func (m *MockEntityStore) Create(ctx context.Context, data map[string]any, actorID string) (map[string]any, error) {
	args := m.Called(ctx, data, actorID)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Log(
	ctx context.Context,
	action string,
	scopeID string,
	actorID *string,
	details map[string]any,
	subjectID *string,
) error {
	return m.Called(ctx, action, scopeID, actorID, details, subjectID).Error(0)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) ClassifyAndSave(ctx context.Context, entityID string) (*Classification, error) {
	args := m.Called(ctx, entityID)
	c, _ := args.Get(0).(*Classification)
	return c, args.Error(1)
}

// countingResolver resolves every run to the same link and counts lookups.
type countingResolver struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (r *countingResolver) ResolveRun(_ context.Context, runID string) (*trigger.RunLink, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &trigger.RunLink{ExternalRunID: runID, ExecutionID: "exec-1", DefinitionID: "def-1"}, nil
}

type memoryAuditStore struct {
	mu      sync.Mutex
	entries []*ElementAudit
	err     error
}

func (s *memoryAuditStore) AppendElementAudit(_ context.Context, a *ElementAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, a)
	return nil
}

func (s *memoryAuditStore) all() []*ElementAudit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ElementAudit(nil), s.entries...)
}
