package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/valentine/internal/compat"
	"github.com/ashureev/valentine/internal/domain"
	"github.com/ashureev/valentine/internal/store"
	"github.com/google/go-cmp/cmp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFlamesCommand(t *testing.T) {
	out, err := execute(t, "flames", "Steve", "Eve")
	if err != nil {
		t.Fatalf("flames failed: %v", err)
	}
	if !strings.HasPrefix(out, "Steve + Eve: Enemy (") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestPercentCommandJSON(t *testing.T) {
	out, err := execute(t, "percent", "--json", "Alice", "Bob")
	if err != nil {
		t.Fatalf("percent failed: %v", err)
	}

	var got compat.Result
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Failed to decode output %q: %v", out, err)
	}
	if diff := cmp.Diff(compat.LoveResult("Alice", "Bob"), got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageCommand(t *testing.T) {
	out, err := execute(t, "message", "95")
	if err != nil {
		t.Fatalf("message failed: %v", err)
	}
	if strings.TrimSpace(out) != compat.Message(95) {
		t.Errorf("Expected %q, got %q", compat.Message(95), out)
	}

	if _, err := execute(t, "message", "lots"); err == nil {
		t.Error("Expected error for a non-numeric percentage")
	}
}

func TestArgumentValidation(t *testing.T) {
	if _, err := execute(t, "flames", "OnlyOne"); err == nil {
		t.Error("Expected error with one name")
	}
}

func TestStatsAndShow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "valentine.db")
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	ctx := context.Background()

	juliet := domain.NewResponse("Juliet", time.Unix(1_700_000_000, 0))
	if err := repo.CreateResponse(ctx, juliet); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateResponse(ctx, domain.NewResponse("Romeo", time.Now())); err != nil {
		t.Fatal(err)
	}
	yes := domain.FinalYes
	if err := repo.UpdateResponse(ctx, juliet.ID, domain.Patch{FinalResponse: &yes}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "stats", "--json", "--db", dbPath)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var stats map[string]int64
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("Failed to decode stats %q: %v", out, err)
	}
	if diff := cmp.Diff(map[string]int64{"total": 2, "yes": 1, "pending": 1}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	out, err = execute(t, "show", "--db", dbPath, juliet.ID)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, `"Juliet"`) || !strings.Contains(out, `"YES"`) {
		t.Errorf("Unexpected record output %q", out)
	}
}

func TestStatsMissingDatabase(t *testing.T) {
	_, err := execute(t, "stats", "--db", filepath.Join(t.TempDir(), "missing.db"))
	if err == nil {
		t.Error("Expected error for a missing database")
	}
}
