package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// ConfigureEvent is the audit record of one configure attempt
type ConfigureEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	ServicesID       string    `json:"services_id,omitempty"`
	Profile          string    `json:"profile,omitempty"`
	Provider         string    `json:"provider"`
	Environment      string    `json:"environment"`
	GatewayURL       string    `json:"gateway_url,omitempty"`
	RecurringURL     string    `json:"recurring_url,omitempty"`
	Secure3DVersions []string  `json:"secure3d_versions,omitempty"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	return l.index(ctx, SystemLogIndex, log)
}

// LogConfigureEvent records a configure attempt in the audit index
func (l *Logger) LogConfigureEvent(ctx context.Context, event ConfigureEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return l.index(ctx, ConfigureEventIndex, event)
}

// RecentConfigureEvents returns the latest configure events, newest first
func (l *Logger) RecentConfigureEvents(ctx context.Context, size int) ([]ConfigureEvent, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	searchQuery := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": size,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{ConfigureEventIndex},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source ConfigureEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	events := make([]ConfigureEvent, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		events[i] = hit.Source
	}

	return events, nil
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	if !l.client.IsEnabled() {
		return nil
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch index error: %s", res.String())
	}

	return nil
}

var sensitiveFields = []string{
	"cardNumber", "card_number", "cvn", "cvv", "sharedSecret", "shared_secret",
	"merchantKey", "transactionKey", "secretApiKey", "password", "sha1hash", "authorization",
}

var sensitivePatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields)*3)
	for _, field := range sensitiveFields {
		patterns = append(patterns,
			regexp.MustCompile(fmt.Sprintf(`(?i)"%s"\s*:\s*"[^"]*"`, field)),
			regexp.MustCompile(fmt.Sprintf(`(?i)<%s>[^<]*</%s>`, field, field)),
			regexp.MustCompile(fmt.Sprintf(`(?i)%s=[^&\s]+`, field)),
		)
	}
	return patterns
}()

// SanitizeForLog masks credentials and card data in JSON, XML or query
// string payloads before they are logged.
func SanitizeForLog(data string) string {
	result := data
	for i, re := range sensitivePatterns {
		field := sensitiveFields[i/3]
		var replacement string
		switch i % 3 {
		case 0:
			replacement = fmt.Sprintf(`"%s":"***REDACTED***"`, field)
		case 1:
			replacement = fmt.Sprintf(`<%s>***REDACTED***</%s>`, field, field)
		default:
			replacement = field + "=***REDACTED***"
		}
		result = re.ReplaceAllString(result, replacement)
	}
	return result
}
