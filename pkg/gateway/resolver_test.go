package gateway

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

func TestConversationRecipientsExcludesActor(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2, 3}
	r := NewResolver(st, zap.NewNop())

	recipients, err := r.ConversationRecipients(42, 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %v", recipients)
	}
	for _, id := range recipients {
		if id == 1 {
			t.Error("actor must be excluded")
		}
	}
}

func TestConversationRecipientsIncludesActorAndDedupes(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2, 2, 3}
	r := NewResolver(st, zap.NewNop())

	recipients, err := r.ConversationRecipients(42, 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipients) != 3 {
		t.Errorf("expected deduplicated set of 3, got %v", recipients)
	}
}

func TestTaskRecipientsStakeholdersAndAdmins(t *testing.T) {
	st := newMockStore()
	st.admins = []int64{3, 4}
	r := NewResolver(st, zap.NewNop())

	assignee := int64(2)
	task := &store.Task{ID: 7, CreatorID: 1, AssigneeID: &assignee}

	recipients, err := r.TaskRecipients(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[int64]bool{1: true, 2: true, 3: true, 4: true}
	if len(recipients) != len(want) {
		t.Fatalf("expected recipients {1,2,3,4}, got %v", recipients)
	}
	for _, id := range recipients {
		if !want[id] {
			t.Errorf("unexpected recipient %d", id)
		}
	}
}

func TestTaskRecipientsDedupesAdminAssignee(t *testing.T) {
	st := newMockStore()
	st.admins = []int64{2}
	r := NewResolver(st, zap.NewNop())

	assignee := int64(2)
	task := &store.Task{ID: 7, CreatorID: 1, AssigneeID: &assignee}

	recipients, err := r.TaskRecipients(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipients) != 2 {
		t.Errorf("expected {1,2}, got %v", recipients)
	}
}

func TestTaskRecipientsEmptySetRefused(t *testing.T) {
	st := newMockStore()
	r := NewResolver(st, zap.NewNop())

	task := &store.Task{ID: 7, CreatorID: 0}

	_, err := r.TaskRecipients(task)
	if !errors.Is(err, ErrEmptyRecipients) {
		t.Errorf("expected ErrEmptyRecipients, got %v", err)
	}
}
