// Package validate compares an uploaded mapping definition against the
// generated code by asking a hosted text-generation model for a verdict.
// Without a service credential it degrades to a fixed mock report, and no
// failure inside the step ever escapes to the caller: the worst case is a
// report that describes the error.
package validate

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/lakeops/bridge/internal/config"
	"github.com/lakeops/bridge/internal/logger"
)

// maxDocChars bounds how much of each document is embedded in the prompt.
// Longer documents are silently truncated; the model sees a prefix only.
const maxDocChars = 4000

// Report modes
const (
	ModeModel = "model"
	ModeMock  = "mock"
	ModeError = "error"
)

// mockReport is returned verbatim when no service credential is configured
const mockReport = `Mock validation mode (no inference credential configured).

ETL Summary: the job reads source(s), applies transformations, and loads target(s).
Matching: key logic appears to align.
No critical mismatches detected.

Set HUGGINGFACE_API_KEY to enable model-backed validation.`

// promptTemplate frames the comparison for the model. Both documents are
// embedded truncated to maxDocChars.
const promptTemplate = `You are a senior ETL migration validator specializing in Informatica-to-Databricks conversions.
Validate whether the generated code below fully replicates the logic in the source XML.

Compare:
- Source and target mapping alignment
- Transformations (lookup, expression, router, filters, joins)
- Load strategy (insert/update/merge)
- Parameter and variable usage

Identify any missing or mismatched logic and summarize in markdown.

--- Source XML (truncated) ---
%s

--- Generated code (truncated) ---
%s

Return sections:
1. ETL Summary
2. Key Matching Transformations
3. Missing / Deviated Logic
4. Final Verdict (Pass/Fail)
`

// Report is the free-text outcome of one validation request. Body is always
// non-empty.
type Report struct {
	Body string `json:"body"`
	Mode string `json:"mode"`
}

// Client generates text from a prompt. Satisfied by the inference client
// and by test stubs.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Reporter produces validation reports. A nil client means mock mode.
type Reporter struct {
	client Client
}

// NewReporter creates a Reporter from configuration. An empty credential
// activates mock mode rather than failing.
func NewReporter(cfg config.ValidationConfig) *Reporter {
	if cfg.Token == "" {
		logger.Info("No inference credential configured, validation runs in mock mode")
		return &Reporter{}
	}
	return &Reporter{client: newInferenceClient(cfg)}
}

// NewReporterWithClient creates a Reporter around an explicit client
func NewReporterWithClient(client Client) *Reporter {
	return &Reporter{client: client}
}

// Validate compares the two documents and always resolves to a report; any
// internal failure becomes report text instead of an error.
func (r *Reporter) Validate(ctx context.Context, xmlText, generatedText string) Report {
	if r.client == nil {
		return Report{Body: mockReport, Mode: ModeMock}
	}

	prompt := fmt.Sprintf(promptTemplate, truncate(xmlText), truncate(generatedText))

	body, err := r.client.Generate(ctx, prompt)
	if err != nil {
		logger.Warnf("Validation inference failed: %v", err)
		return Report{
			Body: fmt.Sprintf("Error during validation: %v", err),
			Mode: ModeError,
		}
	}
	if body == "" {
		return Report{
			Body: "Error during validation: model returned an empty response",
			Mode: ModeError,
		}
	}

	return Report{Body: body, Mode: ModeModel}
}

// truncate keeps at most maxDocChars bytes of a document, backing up to a
// rune boundary so the prompt never carries a split UTF-8 sequence
func truncate(s string) string {
	if len(s) <= maxDocChars {
		return s
	}
	cut := maxDocChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
