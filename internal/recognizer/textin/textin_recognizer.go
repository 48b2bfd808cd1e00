package textin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freightrates/internal/config"
	"freightrates/internal/domain"
)

const recognizePath = "/ai/service/v1/pdf_to_markdown"

// contentFields are the result fields searched, in order, for recognized text.
var contentFields = []string{"html_content", "html", "content", "markdown", "detail"}

// Recognizer implements port.DocumentRecognizer using the TextIn document
// parsing API. Tables are requested as HTML so they can go through the
// same grid reconstruction as e-mail bodies.
type Recognizer struct {
	appID      string
	secretCode string
	endpoint   string
	client     *http.Client
}

// NewRecognizer creates a TextIn recognizer from config.
func NewRecognizer(cfg *config.RecognizerConfig) *Recognizer {
	return newRecognizer(cfg, cfg.Host+recognizePath)
}

// NewRecognizerWithEndpoint creates a recognizer pointing at a custom endpoint (for testing).
func NewRecognizerWithEndpoint(cfg *config.RecognizerConfig, endpoint string) *Recognizer {
	return newRecognizer(cfg, endpoint)
}

func newRecognizer(cfg *config.RecognizerConfig, endpoint string) *Recognizer {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Recognizer{
		appID:      cfg.AppID,
		secretCode: cfg.SecretCode,
		endpoint:   endpoint,
		client:     &http.Client{Timeout: timeout},
	}
}

func queryParams() url.Values {
	q := url.Values{}
	q.Set("apply_document_tree", "1")
	q.Set("apply_merge", "1")
	q.Set("catalog_details", "1")
	q.Set("crop_dewarp", "1")
	q.Set("dpi", "144")
	q.Set("formula_level", "1")
	q.Set("markdown_details", "1")
	q.Set("page_count", "1000")
	q.Set("page_details", "1")
	q.Set("page_start", "0")
	q.Set("parse_mode", "scan")
	q.Set("table_flavor", "html")
	return q
}

// Recognize sends the document URL to TextIn and returns the recognized markup.
func (r *Recognizer) Recognize(ctx context.Context, fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, "http://") && !strings.HasPrefix(fileURL, "https://") {
		return "", fmt.Errorf("%w: file URL must be http or https", domain.ErrRecognitionFailed)
	}

	reqURL := r.endpoint + "?" + queryParams().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader([]byte(fileURL)))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-ti-app-id", r.appID)
	req.Header.Set("x-ti-secret-code", r.secretCode)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling textin API: %v", domain.ErrRecognitionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: textin API status %d: %s", domain.ErrRecognitionFailed, resp.StatusCode, truncate(string(body), 300))
	}

	text, err := parseResponse(body)
	if err != nil {
		return "", err
	}
	return text, nil
}

type apiResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Result  map[string]interface{} `json:"result"`
	Data    map[string]interface{} `json:"data"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding textin response: %v", domain.ErrRecognitionFailed, err)
	}
	if resp.Code != 0 && resp.Code != 200 {
		return "", fmt.Errorf("%w: textin code %d: %s", domain.ErrRecognitionFailed, resp.Code, resp.Message)
	}

	for _, section := range []map[string]interface{}{resp.Result, resp.Data} {
		if text := firstText(section); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: textin returned no content", domain.ErrRecognitionFailed)
}

// firstText returns the first non-empty string among contentFields.
func firstText(m map[string]interface{}) string {
	for _, field := range contentFields {
		if s, ok := m[field].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
