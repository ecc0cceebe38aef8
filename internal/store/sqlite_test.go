package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/valentine/internal/domain"
	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "valentine.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetResponse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, time.February, 14, 9, 30, 0, 0, time.UTC)
	resp := domain.NewResponse("Juliet", created)
	if err := s.CreateResponse(ctx, resp); err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("Expected CreateResponse to assign an ID")
	}

	got, err := s.GetResponse(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if got.Name != "Juliet" || got.FinalResponse != domain.FinalPending {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.CreatedAt.Unix() != created.Unix() {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}
	if len(got.Answers) != 0 {
		t.Errorf("Expected no answers, got %v", got.Answers)
	}
}

func TestUpdateResponseAppliesOnlySetFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resp := domain.NewResponse("Romeo", time.Now())
	if err := s.CreateResponse(ctx, resp); err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}

	answers := []domain.Answer{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}
	if err := s.UpdateResponse(ctx, resp.ID, domain.Patch{Answers: answers}); err != nil {
		t.Fatalf("UpdateResponse(answers) failed: %v", err)
	}

	no := 3
	if err := s.UpdateResponse(ctx, resp.ID, domain.Patch{NoAttempts: &no}); err != nil {
		t.Fatalf("UpdateResponse(no_attempts) failed: %v", err)
	}

	yes, final := 1, domain.FinalYes
	if err := s.UpdateResponse(ctx, resp.ID, domain.Patch{YesAttempts: &yes, FinalResponse: &final}); err != nil {
		t.Fatalf("UpdateResponse(final) failed: %v", err)
	}

	got, err := s.GetResponse(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if diff := cmp.Diff(answers, got.Answers); diff != "" {
		t.Errorf("Answers mismatch (-want +got):\n%s", diff)
	}
	if got.NoAttempts != 3 || got.YesAttempts != 1 || got.FinalResponse != domain.FinalYes {
		t.Errorf("Unexpected counters: %+v", got)
	}

	count, err := s.CountResponses(ctx, domain.FinalYes)
	if err != nil {
		t.Fatalf("CountResponses failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 accepted response, got %d", count)
	}
}

func TestUpdateMissingResponseIsNotFound(t *testing.T) {
	s := newTestStore(t)
	no := 1
	err := s.UpdateResponse(context.Background(), "missing", domain.Patch{NoAttempts: &no})
	if !errdefs.IsNotFound(err) {
		t.Fatalf("Expected not found, got %v", err)
	}

	_, err = s.GetResponse(context.Background(), "missing")
	if !errdefs.IsNotFound(err) {
		t.Fatalf("Expected not found from GetResponse, got %v", err)
	}
}

func TestEmptyPatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateResponse(context.Background(), "anything", domain.Patch{}); err != nil {
		t.Fatalf("Expected empty patch to be ignored, got %v", err)
	}
}

func TestClassifyBusy(t *testing.T) {
	err := classify("update response", errors.New("database is locked (5) (SQLITE_BUSY)"))
	if !errdefs.IsUnavailable(err) {
		t.Errorf("Expected busy error to be unavailable, got %v", err)
	}
	if !IsBusy(err) {
		t.Error("Expected IsBusy to see through the wrapping")
	}

	plain := classify("update response", errors.New("no such table"))
	if errdefs.IsUnavailable(plain) {
		t.Errorf("Expected plain error to stay unclassified, got %v", plain)
	}
}
