package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL is the public REST endpoint of the generative language API.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const apiKeyHeaderName = "x-goog-api-key"

// GeminiClient talks to the generative language REST API directly. No vendor
// SDK: requests and responses are plain JSON over net/http.
type GeminiClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func (c GeminiClient) baseURL() string {
	if strings.TrimSpace(c.BaseURL) != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c GeminiClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// ---------- wire types ----------

type contentPart struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	FileURI  string `json:"file_uri"`
	MIMEType string `json:"mime_type,omitempty"`
}

type requestContent struct {
	Parts []contentPart `json:"parts"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type toolSpec struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateContentRequest struct {
	Contents         []requestContent  `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	Tools            []toolSpec        `json:"tools,omitempty"`
}

type candidate struct {
	Content      *requestContent `json:"content,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount"`
	ThoughtsTokenCount int `json:"thoughtsTokenCount"`
	TotalTokenCount    int `json:"totalTokenCount"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
}

type uploadedFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
}

type uploadFileResponse struct {
	File uploadedFile `json:"file"`
}

type embedContentRequest struct {
	Content requestContent `json:"content"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// ---------- operations ----------

// Generate performs one generation round trip. A delivered-but-empty
// response (safety block, empty candidate) returns a Response with empty
// Text and no error; only transport-level failures return an error.
func (c GeminiClient) Generate(ctx context.Context, request GenerateRequest) (Response, error) {
	parts := []contentPart{{Text: request.Prompt}}
	if request.Document != nil {
		parts = append(parts, contentPart{FileData: &fileData{
			FileURI:  request.Document.URI,
			MIMEType: request.Document.MIMEType,
		}})
	}

	payload := generateContentRequest{
		Contents: []requestContent{{Parts: parts}},
	}
	if request.Temperature > 0 {
		temperature := request.Temperature
		payload.GenerationConfig = &generationConfig{Temperature: &temperature}
	}
	for _, tool := range request.Tools {
		if tool == ToolGoogleSearch {
			payload.Tools = append(payload.Tools, toolSpec{GoogleSearch: &struct{}{}})
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL(), request.Model)
	bodyBytes, statusCode, callErr := c.postJSON(ctx, endpoint, payload)
	if callErr != nil {
		return Response{}, &TransportError{Op: "generate", StatusCode: statusCode, Err: callErr}
	}

	var decoded generateContentResponse
	if decodeErr := json.Unmarshal(bodyBytes, &decoded); decodeErr != nil {
		return Response{}, &TransportError{Op: "generate", StatusCode: statusCode,
			Err: fmt.Errorf("decode response: %w (body=%s)", decodeErr, truncateForLog(string(bodyBytes), 512))}
	}

	response := Response{}
	if decoded.UsageMetadata != nil {
		response.Usage = Usage{
			PromptTokens:  decoded.UsageMetadata.PromptTokenCount,
			ThoughtTokens: decoded.UsageMetadata.ThoughtsTokenCount,
			TotalTokens:   decoded.UsageMetadata.TotalTokenCount,
		}
	}
	if decoded.PromptFeedback != nil {
		response.BlockReason = decoded.PromptFeedback.BlockReason
	}

	var fragments []string
	for _, cand := range decoded.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
				fragments = append(fragments, trimmed)
			}
		}
	}
	response.Text = strings.Join(fragments, "\n")
	return response, nil
}

// Upload pushes a local file to the files API and returns its handle.
func (c GeminiClient) Upload(ctx context.Context, path string) (Document, error) {
	fileBytes, readErr := os.ReadFile(filepath.Clean(path))
	if readErr != nil {
		return Document{}, &UploadError{Path: path, Err: readErr}
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	endpoint := fmt.Sprintf("%s/files?uploadType=media", uploadBaseURL(c.baseURL()))
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(fileBytes))
	if buildErr != nil {
		return Document{}, &UploadError{Path: path, Err: buildErr}
	}
	httpRequest.Header.Set("Content-Type", mimeType)
	httpRequest.Header.Set(apiKeyHeaderName, c.APIKey)

	httpResponse, httpErr := c.httpClient().Do(httpRequest)
	if httpErr != nil {
		return Document{}, &UploadError{Path: path, Err: httpErr}
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readBodyErr := io.ReadAll(httpResponse.Body)
	if readBodyErr != nil {
		return Document{}, &UploadError{Path: path, Err: readBodyErr}
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return Document{}, &UploadError{Path: path,
			Err: fmt.Errorf("http %d: %s", httpResponse.StatusCode, truncateForLog(string(bodyBytes), 512))}
	}

	var decoded uploadFileResponse
	if decodeErr := json.Unmarshal(bodyBytes, &decoded); decodeErr != nil {
		return Document{}, &UploadError{Path: path, Err: fmt.Errorf("decode upload response: %w", decodeErr)}
	}
	if strings.TrimSpace(decoded.File.URI) == "" {
		return Document{}, &UploadError{Path: path, Err: fmt.Errorf("upload response carried no file uri: %s", truncateForLog(string(bodyBytes), 512))}
	}

	document := Document{Name: decoded.File.Name, URI: decoded.File.URI, MIMEType: decoded.File.MIMEType}
	if document.MIMEType == "" {
		document.MIMEType = mimeType
	}
	return document, nil
}

// Release deletes an uploaded file. Releasing an already-deleted or zero
// handle is a no-op.
func (c GeminiClient) Release(ctx context.Context, document Document) error {
	if strings.TrimSpace(document.Name) == "" {
		return nil
	}
	endpoint := fmt.Sprintf("%s/%s", c.baseURL(), strings.TrimPrefix(document.Name, "/"))
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if buildErr != nil {
		return &TransportError{Op: "release", Err: buildErr}
	}
	httpRequest.Header.Set(apiKeyHeaderName, c.APIKey)

	httpResponse, httpErr := c.httpClient().Do(httpRequest)
	if httpErr != nil {
		return &TransportError{Op: "release", Err: httpErr}
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)
	bodyBytes, _ := io.ReadAll(httpResponse.Body)

	// 404 means the handle is already gone; Release is idempotent.
	if httpResponse.StatusCode == http.StatusNotFound {
		return nil
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return &TransportError{Op: "release", StatusCode: httpResponse.StatusCode,
			Err: fmt.Errorf("%s", truncateForLog(string(bodyBytes), 512))}
	}
	return nil
}

// EmbedText requests one embedding vector for the given text.
func (c GeminiClient) EmbedText(ctx context.Context, model string, text string) ([]float64, error) {
	payload := embedContentRequest{Content: requestContent{Parts: []contentPart{{Text: text}}}}
	endpoint := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL(), model)
	bodyBytes, statusCode, callErr := c.postJSON(ctx, endpoint, payload)
	if callErr != nil {
		return nil, &TransportError{Op: "embed", StatusCode: statusCode, Err: callErr}
	}
	var decoded embedContentResponse
	if decodeErr := json.Unmarshal(bodyBytes, &decoded); decodeErr != nil {
		return nil, &TransportError{Op: "embed", StatusCode: statusCode,
			Err: fmt.Errorf("decode embedding response: %w", decodeErr)}
	}
	if len(decoded.Embedding.Values) == 0 {
		return nil, &TransportError{Op: "embed", StatusCode: statusCode,
			Err: fmt.Errorf("embedding response carried no values")}
	}
	return decoded.Embedding.Values, nil
}

// ---------- helpers ----------

func (c GeminiClient) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, int, error) {
	requestBytes, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, 0, marshalErr
	}
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBytes))
	if buildErr != nil {
		return nil, 0, buildErr
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set(apiKeyHeaderName, c.APIKey)

	httpResponse, httpErr := c.httpClient().Do(httpRequest)
	if httpErr != nil {
		return nil, 0, httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return nil, httpResponse.StatusCode, readErr
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, httpResponse.StatusCode,
			fmt.Errorf("%s", truncateForLog(string(bodyBytes), 512))
	}
	return bodyBytes, httpResponse.StatusCode, nil
}

// uploadBaseURL rewrites the API base for the media-upload surface, which
// lives under /upload.
func uploadBaseURL(base string) string {
	const versionedSuffix = "/v1beta"
	if strings.HasSuffix(base, versionedSuffix) {
		return strings.TrimSuffix(base, versionedSuffix) + "/upload" + versionedSuffix
	}
	return base + "/upload"
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
