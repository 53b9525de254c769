package extractors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

func TestSnapshotExtractorJTBD(t *testing.T) {
	extractor := NewSnapshotExtractor()

	snapshot, err := extractor.JTBD(json.RawMessage(`{"jobs":[{"job_statement":"Track spend","opportunity_score":72},{"opportunity_score":58.5}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Jobs) != 2 || snapshot.Jobs[1].OpportunityScore != 58.5 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestSnapshotExtractorNotPopulated(t *testing.T) {
	extractor := NewSnapshotExtractor()

	cases := []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`{"other":[]}`)}
	for _, content := range cases {
		if _, err := extractor.Opportunities(content); !errors.Is(err, ErrNotPopulated) {
			t.Fatalf("content %q: expected ErrNotPopulated, got %v", content, err)
		}
	}
}

func TestSnapshotExtractorMalformed(t *testing.T) {
	extractor := NewSnapshotExtractor()
	_, err := extractor.ScoringMatrix(json.RawMessage(`{"summary":"oops"}`))
	if err == nil || errors.Is(err, ErrNotPopulated) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSnapshotExtractorApply(t *testing.T) {
	extractor := NewSnapshotExtractor()
	var snapshot models.RunSnapshot

	err := extractor.Apply(&snapshot, models.Artifact{
		Type:    models.ArtifactScoringMatrix,
		Content: json.RawMessage(`{"summary":[{"competitor_name":"Acme","total_weighted_score":64}]}`),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if snapshot.ScoringMatrix == nil || snapshot.ScoringMatrix.Summary[0].TotalWeightedScore != 64 {
		t.Fatalf("scoring matrix not applied: %+v", snapshot)
	}
	if snapshot.Empty() {
		t.Fatalf("snapshot should not be empty")
	}

	if err := extractor.Apply(&snapshot, models.Artifact{Type: "profiles"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestOpportunityScores(t *testing.T) {
	extractor := NewSnapshotExtractor()
	scores, err := extractor.OpportunityScores(json.RawMessage(`{"opportunities":[{"title":"A","score":80},{"title":"B","score":61}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 || scores[0] != 80 || scores[1] != 61 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}
