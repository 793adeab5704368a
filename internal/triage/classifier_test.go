package triage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

func classifierServer(t *testing.T, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 0 {
			t.Error("expected ticket prompt in request contents")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": modelText}}}},
			},
		})
	}))
}

func newTestClassifier(endpoint string) *LLMClassifier {
	return NewLLMClassifier(config.ClassifierConfig{
		Endpoint:       endpoint,
		TimeoutSeconds: 5,
	}, zap.NewNop())
}

func TestAnalyzeParsesCleanJSON(t *testing.T) {
	srv := classifierServer(t, `{"summary":"Login broken","priority":"high","helpfulNotes":"Check the session store.","relatedSkills":["go","redis"]}`)
	defer srv.Close()

	got := newTestClassifier(srv.URL).Analyze(context.Background(), "Cannot log in", "Session expires immediately")
	if got.Summary != "Login broken" || got.Priority != "high" {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if len(got.RelatedSkills) != 2 || got.RelatedSkills[0] != "go" {
		t.Fatalf("unexpected skills: %v", got.RelatedSkills)
	}
}

func TestAnalyzeExtractsEmbeddedJSON(t *testing.T) {
	fenced := "```json\n{\"summary\":\"DB slow\",\"priority\":\"medium\",\"helpfulNotes\":\"Add an index.\",\"relatedSkills\":[\"postgres\"]}\n```"
	srv := classifierServer(t, fenced)
	defer srv.Close()

	got := newTestClassifier(srv.URL).Analyze(context.Background(), "Slow queries", "Reports take minutes")
	if got.Summary != "DB slow" {
		t.Fatalf("expected embedded JSON to parse, got %+v", got)
	}
}

func TestAnalyzeFallbackOnMissingFields(t *testing.T) {
	srv := classifierServer(t, `{"summary":"Only a summary"}`)
	defer srv.Close()

	got := newTestClassifier(srv.URL).Analyze(context.Background(), "t", "d")
	want := FallbackClassification()
	if got.Summary != want.Summary || got.Priority != want.Priority {
		t.Fatalf("expected fallback, got %+v", got)
	}
}

func TestAnalyzeFallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newTestClassifier(srv.URL).Analyze(context.Background(), "t", "d")
	if got.Summary != FallbackClassification().Summary {
		t.Fatalf("expected fallback, got %+v", got)
	}
}

func TestAnalyzeFallbackWithoutEndpoint(t *testing.T) {
	got := newTestClassifier("").Analyze(context.Background(), "t", "d")
	want := FallbackClassification()
	if got.HelpfulNotes != want.HelpfulNotes {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if len(got.RelatedSkills) != 1 || got.RelatedSkills[0] != "general" {
		t.Fatalf("expected general skill, got %v", got.RelatedSkills)
	}
}

func TestParseClassificationRejectsGarbage(t *testing.T) {
	if _, err := parseClassification("the model refused to answer"); err == nil {
		t.Fatal("expected error for non-JSON text")
	}
}
