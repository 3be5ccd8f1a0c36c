// Package vision implements the VisionProvider capability from spec.md §6:
// an AI triage pass over a diff image, returning raw model text for the
// scorer to extract structured findings from.
package vision

import "context"

// AnalyzeRequest is one triage call's input. DiffPath is optional — a
// provider asked to analyze a match-adjacent pair with no diff image yet
// omits it.
type AnalyzeRequest struct {
	BaselinePath string
	TestPath     string
	DiffPath     string
	Prompt       string
	Model        string
}

// AnalyzeResponse is the provider's raw output. The scorer (ParseAnalysis
// in this package) is responsible for extracting structured fields from
// Text; providers never parse their own model's response into
// types.AIAnalysis themselves, so swapping providers never changes how
// results are scored.
type AnalyzeResponse struct {
	Text       string
	TokensUsed int
}

// Provider is the capability interface every concrete AI backend
// (OpenAI-compatible, Anthropic-compatible, Google-compatible, OpenRouter)
// implements. The SDK-specific wiring for each is out of scope; HTTPProvider
// covers the common OpenAI-Chat-Completions-shaped case directly.
type Provider interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error)
}

// DefaultPrompt is the triage instruction sent when the caller supplies
// none.
const DefaultPrompt = `You are reviewing a visual regression test diff between a baseline and a test screenshot. Respond with a single JSON object: {"category": one of "cosmetic"|"noise"|"content_change"|"layout_shift"|"regression", "severity": one of "info"|"warning"|"critical", "confidence": a number from 0 to 1, "recommendation": one of "approve"|"reject"|"review"}. You may include brief prose before or after the JSON object.`
