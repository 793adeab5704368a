package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Classification is the structured triage result for a ticket.
type Classification struct {
	Summary       string   `json:"summary"`
	Priority      string   `json:"priority"`
	HelpfulNotes  string   `json:"helpfulNotes"`
	RelatedSkills []string `json:"relatedSkills"`
}

// FallbackClassification is returned whenever the model cannot be reached or
// produces output that fails validation. The wrapper never propagates an
// error to the pipeline.
func FallbackClassification() Classification {
	return Classification{
		Summary:       "Failed to analyze ticket",
		Priority:      "medium",
		HelpfulNotes:  "AI analysis failed. Please review manually.",
		RelatedSkills: []string{"general"},
	}
}

// Classifier produces a triage classification for a ticket.
type Classifier interface {
	Analyze(ctx context.Context, title, description string) Classification
}

const systemPrompt = `You are an expert AI assistant that processes technical support tickets.

Your job is to:
1. Summarize the issue.
2. Estimate its priority.
3. Provide helpful notes and resource links for human moderators.
4. List relevant technical skills required.

IMPORTANT:
- You MUST return a complete JSON object with ALL fields: summary, priority, helpfulNotes, and relatedSkills.
- The priority MUST be one of: "low", "medium", or "high".
- The relatedSkills MUST be an array of strings.
- Do NOT include markdown, code fences, or any extra formatting.`

// LLMClassifier calls a Gemini-style generateContent endpoint and extracts
// the JSON object from the raw model text.
type LLMClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewLLMClassifier builds the classifier from config.
func NewLLMClassifier(cfg config.ClassifierConfig, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logger,
	}
}

type generateRequest struct {
	SystemInstruction content   `json:"system_instruction"`
	Contents          []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Analyze classifies the ticket, returning the fallback object on any failure.
func (c *LLMClassifier) Analyze(ctx context.Context, title, description string) Classification {
	result, err := c.analyze(ctx, title, description)
	if err != nil {
		c.logger.Warn("classifier failed, using fallback", zap.Error(err))
		return FallbackClassification()
	}
	return result
}

func (c *LLMClassifier) analyze(ctx context.Context, title, description string) (Classification, error) {
	if c.endpoint == "" {
		return Classification{}, errors.New("classifier endpoint not configured")
	}

	prompt := fmt.Sprintf(`Analyze this support ticket and return a complete JSON object with ALL required fields.

REQUIRED FIELDS:
- summary: A short 1-2 sentence summary of the issue
- priority: Must be one of "low", "medium", or "high"
- helpfulNotes: Detailed technical explanation with resources
- relatedSkills: Array of required technical skills

Ticket information:
Title: %s
Description: %s`, title, description)

	payload, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return Classification{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Classification{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Classification{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Classification{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return Classification{}, errors.New("no text content in response")
	}

	return parseClassification(decoded.Candidates[0].Content.Parts[0].Text)
}

// parseClassification extracts the JSON object from raw model text. The
// model occasionally wraps its answer in code fences or prose, so after a
// direct parse fails the span between the first '{' and the last '}' is
// tried.
func parseClassification(raw string) (Classification, error) {
	raw = strings.TrimSpace(raw)

	var result Classification
	if err := json.Unmarshal([]byte(raw), &result); err == nil {
		return validateClassification(result)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Classification{}, errors.New("could not find JSON object in response")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return Classification{}, fmt.Errorf("parse embedded JSON: %w", err)
	}
	return validateClassification(result)
}

func validateClassification(c Classification) (Classification, error) {
	if c.Summary == "" || c.Priority == "" || c.HelpfulNotes == "" || c.RelatedSkills == nil {
		return Classification{}, errors.New("missing required fields in response")
	}
	return c, nil
}
