// Package llm exposes the generative model collaborator as a narrow
// capability: upload a document, generate text against a prompt, release the
// document. Concrete transports live behind the Client interface so the
// orchestration layers can be exercised with fakes.
package llm

import (
	"context"
	"fmt"
)

// Tool names an optional capability the model may use during generation.
type Tool string

// ToolGoogleSearch lets the model ground answers with web search.
const ToolGoogleSearch Tool = "google_search"

// Document is an opaque handle to an uploaded file, shared read-only across
// every stage of one pipeline run.
type Document struct {
	Name     string
	URI      string
	MIMEType string
}

// GenerateRequest carries everything one generation call needs.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Document    *Document
	Temperature float64
	Tools       []Tool
}

// Usage reports token accounting for one generation call.
type Usage struct {
	PromptTokens  int
	ThoughtTokens int
	TotalTokens   int
}

// Response is the uniform result of a successful transport round trip. An
// empty Text with a populated BlockReason is a blocked-but-delivered
// response; callers classify it, they do not treat it as a transport fault.
type Response struct {
	Text        string
	BlockReason string
	Usage       Usage
}

// Client is the generative model capability.
type Client interface {
	Upload(ctx context.Context, path string) (Document, error)
	Generate(ctx context.Context, request GenerateRequest) (Response, error)
	Release(ctx context.Context, document Document) error
}

// Embedder turns text into a vector, used by the treatment workflow's
// similarity gate.
type Embedder interface {
	EmbedText(ctx context.Context, model string, text string) ([]float64, error)
}

// TransportError covers network, auth, rate-limit and quota failures from
// the model API. It is distinct from empty or malformed content, which are
// successful calls.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UploadError is a resource-acquisition failure. Unlike TransportError it is
// not retried by the stage loop; the batch driver decides file-level
// fallback.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
