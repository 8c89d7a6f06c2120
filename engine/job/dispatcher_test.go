package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FailCapable(t *testing.T) {
	t.Run("Should report fail with a decremented retry budget", func(t *testing.T) {
		reporter := &MockReporter{}
		entities := &MockEntityStore{}
		entities.On("UpdateStatus", mock.Anything, "e1", "done").Return(errors.New("store unavailable"))
		reporter.On("Fail", mock.Anything, mock.Anything, mock.MatchedBy(func(msg string) bool {
			return assert.Contains(t, msg, "store unavailable")
		}), 2).Return(nil).Once()
		d := NewDispatcher(reporter, Collaborators{Entities: entities})

		report, err := d.Handle(context.Background(), &Job{
			Key:       "k1",
			Kind:      KindUpdateStatus,
			Retries:   3,
			Variables: map[string]any{"entityId": "e1", "status": "done"},
		})

		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, report.Outcome)
		require.NotNil(t, report.Retries)
		assert.Equal(t, 2, *report.Retries)
		reporter.AssertExpectations(t)
	})
	t.Run("Should never report a negative budget", func(t *testing.T) {
		reporter := &MockReporter{}
		reporter.On("Fail", mock.Anything, mock.Anything, mock.Anything, 0).Return(nil).Once()
		d := NewDispatcher(reporter, Collaborators{Entities: &MockEntityStore{}})

		report, err := d.Handle(context.Background(), &Job{Kind: KindUpdateAssignee, Retries: 0})

		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, report.Outcome)
		reporter.AssertExpectations(t)
	})
	t.Run("Should complete status updates and decode loosely typed values", func(t *testing.T) {
		reporter := &MockReporter{}
		entities := &MockEntityStore{}
		entities.On("UpdateStatus", mock.Anything, "42", "open").Return(nil)
		reporter.On("Complete", mock.Anything, mock.Anything, map[string]any{
			"applied": true, "entityId": "42", "status": "open",
		}).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Entities: entities})

		report, err := d.Handle(context.Background(), &Job{
			Kind:      KindUpdateStatus,
			Variables: map[string]any{"entityId": 42, "status": "open", "unrelated": true},
		})

		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, report.Outcome)
		reporter.AssertExpectations(t)
	})
	t.Run("Should clear the assignee when the id is blank", func(t *testing.T) {
		reporter := &MockReporter{}
		entities := &MockEntityStore{}
		entities.On("UpdateAssignee", mock.Anything, "e1", (*string)(nil)).Return(nil)
		reporter.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Entities: entities})

		_, err := d.Handle(context.Background(), &Job{
			Kind:      KindUpdateAssignee,
			Variables: map[string]any{"entityId": "e1", "assigneeId": ""},
		})

		require.NoError(t, err)
		entities.AssertExpectations(t)
	})
}

func TestDispatcher_BestEffort(t *testing.T) {
	t.Run("Should complete with an error flag when the effect fails", func(t *testing.T) {
		reporter := &MockReporter{}
		notifier := &MockNotifier{}
		notifier.On("Send", mock.Anything, Message{To: "a@b.c", Subject: "Hi", Text: "body"}).
			Return(false, errors.New("smtp down"))
		reporter.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(r map[string]any) bool {
			return r["applied"] == false && r["error"] != ""
		})).Return(nil).Once()
		d := NewDispatcher(reporter, Collaborators{Notifier: notifier})

		report, err := d.Handle(context.Background(), &Job{
			Kind:      KindSendEmail,
			Retries:   3,
			Variables: map[string]any{"to": "a@b.c", "subject": "Hi", "text": "body"},
		})

		require.NoError(t, err)
		assert.Equal(t, OutcomeCompletedWithError, report.Outcome)
		reporter.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		reporter.AssertExpectations(t)
	})
	t.Run("Should skip with a flag when the collaborator is absent", func(t *testing.T) {
		for _, kind := range []Kind{
			KindUpdateStatus, KindUpdateAssignee, KindSendNotification, KindSendEmail,
			KindLogActivity, KindClassifyEntity, KindMarkCompleted,
		} {
			reporter := &MockReporter{}
			reporter.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(r map[string]any) bool {
				return r["skipped"] == true && r["reason"] != ""
			})).Return(nil).Once()
			d := NewDispatcher(reporter, Collaborators{})

			report, err := d.Handle(context.Background(), &Job{Kind: kind, Retries: 3})

			require.NoError(t, err, kind)
			assert.Equal(t, OutcomeSkipped, report.Outcome, kind)
			reporter.AssertExpectations(t)
		}
	})
	t.Run("Should resolve the notification recipient from the entity", func(t *testing.T) {
		reporter := &MockReporter{}
		notifier := &MockNotifier{}
		entities := &MockEntityStore{}
		entities.On("FindOne", mock.Anything, "e1").Return(map[string]any{"assigneeEmail": "owner@x.io"}, nil)
		notifier.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool { return m.To == "owner@x.io" })).
			Return(true, nil)
		reporter.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Notifier: notifier, Entities: entities})

		report, err := d.Handle(context.Background(), &Job{
			Kind:      KindSendNotification,
			Variables: map[string]any{"entityId": "e1", "subject": "Assigned", "message": "You got it"},
		})

		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, report.Outcome)
		notifier.AssertExpectations(t)
	})
	t.Run("Should write the completion marker", func(t *testing.T) {
		reporter := &MockReporter{}
		audit := &MockAuditLog{}
		actor := "u1"
		entity := "e1"
		audit.On("Log", mock.Anything, "process_completed", "w1", &actor, mock.Anything, &entity).Return(nil)
		reporter.On("Complete", mock.Anything, mock.Anything, map[string]any{"completed": true}).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Audit: audit})

		_, err := d.Handle(context.Background(), &Job{
			Kind:      KindMarkCompleted,
			RunID:     "run-1",
			Variables: map[string]any{"workspaceId": "w1", "userId": "u1", "entityId": "e1"},
		})

		require.NoError(t, err)
		audit.AssertExpectations(t)
		reporter.AssertExpectations(t)
	})
	t.Run("Should return classification results", func(t *testing.T) {
		reporter := &MockReporter{}
		classifier := &MockClassifier{}
		classifier.On("ClassifyAndSave", mock.Anything, "e1").
			Return(&Classification{Category: "billing", Priority: "high", Confidence: 0.9}, nil)
		reporter.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(r map[string]any) bool {
			return r["category"] == "billing" && r["confidence"] == 0.9
		})).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Classifier: classifier})

		report, err := d.Handle(context.Background(), &Job{Kind: KindClassifyEntity, Variables: map[string]any{"entityId": "e1"}})

		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, report.Outcome)
	})
}

func TestDispatcher_Errors(t *testing.T) {
	t.Run("Should reject unknown kinds", func(t *testing.T) {
		d := NewDispatcher(&MockReporter{}, Collaborators{})
		_, err := d.Handle(context.Background(), &Job{Kind: "teleport"})
		assert.ErrorIs(t, err, ErrUnknownJobKind)
	})
	t.Run("Should surface reporter failures", func(t *testing.T) {
		reporter := &MockReporter{}
		reporter.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("orchestrator gone"))
		d := NewDispatcher(reporter, Collaborators{})
		report, err := d.Handle(context.Background(), &Job{Kind: KindLogActivity})
		assert.ErrorContains(t, err, "orchestrator gone")
		require.NotNil(t, report)
		assert.Equal(t, OutcomeSkipped, report.Outcome)
	})
	t.Run("Should turn handler panics into failures", func(t *testing.T) {
		reporter := &MockReporter{}
		entities := &MockEntityStore{}
		entities.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Panic("nil map")
		reporter.On("Fail", mock.Anything, mock.Anything, mock.Anything, 1).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Entities: entities})
		report, err := d.Handle(context.Background(), &Job{
			Kind:      KindUpdateStatus,
			Retries:   2,
			Variables: map[string]any{"entityId": "e1", "status": "x"},
		})
		require.NoError(t, err)
		assert.Contains(t, report.Error, "panic")
	})
}
