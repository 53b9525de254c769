package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "guardrails.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLiteCompetitors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, c := range []models.Competitor{
		{ID: "c2", ProjectID: "proj-1", Name: "Beta", URL: "https://beta.test"},
		{ID: "c1", ProjectID: "proj-1", Name: "Acme", URL: "https://acme.test"},
		{ID: "c3", ProjectID: "proj-2", Name: "Other"},
	} {
		if err := s.SaveCompetitor(ctx, c); err != nil {
			t.Fatalf("save competitor: %v", err)
		}
	}

	got, err := s.ListCompetitors(ctx, "proj-1")
	if err != nil {
		t.Fatalf("list competitors: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].URL != "https://beta.test" {
		t.Fatalf("unexpected competitors: %+v", got)
	}

	empty, err := s.ListCompetitors(ctx, "missing")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v %v", empty, err)
	}
}

func TestSQLiteArtifactsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	artifacts := []models.Artifact{
		{ID: "a1", ProjectID: "proj-1", RunID: "run-1", Type: models.ArtifactJTBD, SchemaVersion: 2,
			Content: json.RawMessage(`{"jobs":[{"opportunity_score":58}]}`), CreatedAt: base},
		{ID: "a2", ProjectID: "proj-1", RunID: "run-2", Type: models.ArtifactJTBD, SchemaVersion: 2,
			Content: json.RawMessage(`{"jobs":[{"opportunity_score":72}]}`), CreatedAt: base.Add(time.Hour)},
		{ID: "a3", ProjectID: "proj-1", RunID: "run-2", Type: models.ArtifactType("profiles"), CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, a := range artifacts {
		if err := s.SaveArtifact(ctx, a); err != nil {
			t.Fatalf("save artifact: %v", err)
		}
	}

	got, err := s.ListArtifacts(ctx, "proj-1", models.DriftArtifactTypes)
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two drift artifacts, got %d", len(got))
	}
	if got[0].ID != "a2" || got[1].ID != "a1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if !got[0].CreatedAt.Equal(base.Add(time.Hour)) || got[0].SchemaVersion != 2 || got[0].RunID != "run-2" {
		t.Fatalf("artifact did not round trip: %+v", got[0])
	}
	if string(got[1].Content) != `{"jobs":[{"opportunity_score":58}]}` {
		t.Fatalf("content did not round trip: %s", got[1].Content)
	}

	all, err := s.ListArtifacts(ctx, "proj-1", nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all three artifacts, got %d (%v)", len(all), err)
	}
}

func TestSQLiteSaveArtifactFillsDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveArtifact(ctx, models.Artifact{ProjectID: "proj-1", RunID: "run-1", Type: models.ArtifactOpportunities}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.ListArtifacts(ctx, "proj-1", []models.ArtifactType{models.ArtifactOpportunities})
	if err != nil || len(got) != 1 {
		t.Fatalf("list: %v %v", got, err)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() || got[0].Content != nil {
		t.Fatalf("defaults not applied: %+v", got[0])
	}

	if err := s.SaveArtifact(ctx, models.Artifact{Type: models.ArtifactJTBD}); err == nil {
		t.Fatalf("expected error without project id")
	}
}

func TestSQLiteRunsSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, a := range []models.Artifact{
		{ID: "old", ProjectID: "proj-1", RunID: "run-1", Type: models.ArtifactJTBD, CreatedAt: base},
		{ID: "new-a", ProjectID: "proj-1", RunID: "run-2", Type: models.ArtifactJTBD, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "new-b", ProjectID: "proj-1", RunID: "run-2", Type: models.ArtifactOpportunities, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "other", ProjectID: "proj-2", RunID: "run-9", Type: models.ArtifactJTBD, CreatedAt: base.Add(90 * time.Minute)},
		{ID: "orphan", ProjectID: "proj-2", Type: models.ArtifactJTBD, CreatedAt: base.Add(4 * time.Hour)},
	} {
		if err := s.SaveArtifact(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	runs, err := s.RunsSince(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("runs since: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected two runs, got %+v", runs)
	}
	if runs[0].RunID != "run-9" || runs[1].RunID != "run-2" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[1].CreatedAt.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("expected newest artifact time, got %v", runs[1].CreatedAt)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "postgres"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
