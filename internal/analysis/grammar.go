package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GrammarChecker counts grammar issues in text for one language. The check is
// a suspension point; callers treat failures as zero issues.
type GrammarChecker interface {
	Check(ctx context.Context, text, language string) (int, error)
}

// LanguageTool talks to a LanguageTool-compatible checking service. Issues
// are counted, not categorized or deduplicated.
type LanguageTool struct {
	endpoint   string
	httpClient *http.Client
}

func NewLanguageTool(endpoint string, timeout time.Duration) *LanguageTool {
	return &LanguageTool{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (lt *LanguageTool) Check(ctx context.Context, text, language string) (int, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		lt.endpoint+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("failed to build grammar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := lt.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to check grammar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("grammar check returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read grammar response: %w", err)
	}

	var checkResp struct {
		Matches []json.RawMessage `json:"matches"`
	}
	if err := json.Unmarshal(body, &checkResp); err != nil {
		return 0, fmt.Errorf("failed to parse grammar response: %w", err)
	}

	return len(checkResp.Matches), nil
}
