// Package triggertest provides test doubles for the trigger package.
package triggertest

import (
	"context"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, t *trigger.Trigger) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id core.ID) (*trigger.Trigger, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*trigger.Trigger)
	return t, args.Error(1)
}

func (m *MockRepository) GetBySlug(ctx context.Context, workspaceID, slug string) (*trigger.Trigger, error) {
	args := m.Called(ctx, workspaceID, slug)
	t, _ := args.Get(0).(*trigger.Trigger)
	return t, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter *trigger.Filter) ([]*trigger.Trigger, error) {
	args := m.Called(ctx, filter)
	ts, _ := args.Get(0).([]*trigger.Trigger)
	return ts, args.Error(1)
}

func (m *MockRepository) ListActive(
	ctx context.Context,
	eventType trigger.EventType,
	workspaceID string,
) ([]*trigger.Trigger, error) {
	args := m.Called(ctx, eventType, workspaceID)
	ts, _ := args.Get(0).([]*trigger.Trigger)
	return ts, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, t *trigger.Trigger) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockRepository) SetActive(ctx context.Context, id core.ID, active bool) (*trigger.Trigger, error) {
	args := m.Called(ctx, id, active)
	t, _ := args.Get(0).(*trigger.Trigger)
	return t, args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id core.ID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) RecordFire(ctx context.Context, id core.ID, firedAt time.Time) error {
	return m.Called(ctx, id, firedAt).Error(0)
}

type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Append(ctx context.Context, e *trigger.Execution) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockExecutionRepository) ListByTrigger(
	ctx context.Context,
	triggerID core.ID,
	limit int,
) ([]*trigger.Execution, error) {
	args := m.Called(ctx, triggerID, limit)
	es, _ := args.Get(0).([]*trigger.Execution)
	return es, args.Error(1)
}

func (m *MockExecutionRepository) ResolveRun(ctx context.Context, externalRunID string) (*trigger.RunLink, error) {
	args := m.Called(ctx, externalRunID)
	link, _ := args.Get(0).(*trigger.RunLink)
	return link, args.Error(1)
}

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) IsDeployable(ctx context.Context, definitionID string) (bool, error) {
	args := m.Called(ctx, definitionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrchestrator) StartProcess(
	ctx context.Context,
	definitionID string,
	vars map[string]any,
	opts trigger.StartOptions,
) (*trigger.RunHandle, error) {
	args := m.Called(ctx, definitionID, vars, opts)
	h, _ := args.Get(0).(*trigger.RunHandle)
	return h, args.Error(1)
}

func (m *MockOrchestrator) Cancel(ctx context.Context, runID string) error {
	return m.Called(ctx, runID).Error(0)
}

type MockListener struct {
	mock.Mock
}

func (m *MockListener) OnTriggerChanged(ctx context.Context, t *trigger.Trigger) {
	m.Called(ctx, t)
}

func (m *MockListener) OnTriggerDeleted(ctx context.Context, id core.ID) {
	m.Called(ctx, id)
}
