package nasa

import (
	"context"
	"regexp"
	"strings"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

// TechTransfer search categories
const (
	CategoryPatent   = "patent"
	CategorySoftware = "software"
	CategorySpinoff  = "spinoff"
)

// DefaultSearchLimit caps how many results a search returns when the caller
// does not ask for a specific limit.
const DefaultSearchLimit = 10

// Patent represents a NASA patent record
type Patent struct {
	ID           string
	CaseNumber   string
	Title        string
	Abstract     string
	PatentNumber string
	Category     string
	Center       string
}

// Software represents a NASA software catalog record
type Software struct {
	ID          string
	CaseNumber  string
	Title       string
	Description string
	Category    string
	Center      string
	ReleaseType string
}

// Spinoff represents a NASA spinoff technology record
type Spinoff struct {
	ID          string
	Title       string
	Description string
	Category    string
	Center      string
}

// SearchResult bundles one category's outcome inside SearchAll. A failed
// category carries its error here instead of failing the whole call.
type SearchResult struct {
	Patents  []Patent
	Software []Software
	Spinoffs []Spinoff
	Err      error
}

// techTransferResponse is the upstream envelope. Each result is a
// positional array of values, mostly strings.
type techTransferResponse struct {
	Results [][]interface{} `json:"results"`
	Count   int             `json:"count"`
	Total   int             `json:"total"`
	PerPage int             `json:"perpage"`
	Page    int             `json:"page"`
}

// TechTransferClient talks to NASA's TechTransfer API
type TechTransferClient struct {
	client *Client
	logger logger.Logger
}

// NewTechTransferClient creates a TechTransfer client on top of the shared
// NASA client
func NewTechTransferClient(client *Client) *TechTransferClient {
	return &TechTransferClient{client: client, logger: client.logger}
}

// Categories returns the searchable TechTransfer categories
func Categories() []string {
	return []string{CategoryPatent, CategorySoftware, CategorySpinoff}
}

// SearchPatents searches NASA patents matching the query
func (tc *TechTransferClient) SearchPatents(ctx context.Context, query string, limit int) ([]Patent, error) {
	resp, err := tc.search(ctx, CategoryPatent, query, &limit)
	if err != nil {
		return nil, err
	}

	patents := make([]Patent, 0, len(resp.Results))
	for _, row := range resp.Results {
		patents = append(patents, Patent{
			ID:           rowField(row, 0),
			CaseNumber:   rowField(row, 1),
			Title:        stripHighlight(rowField(row, 2)),
			Abstract:     stripHighlight(rowField(row, 3)),
			PatentNumber: rowField(row, 4),
			Category:     rowField(row, 5),
			Center:       rowField(row, 9),
		})
		if len(patents) == limit {
			break
		}
	}
	return patents, nil
}

// SearchSoftware searches the NASA software catalog matching the query
func (tc *TechTransferClient) SearchSoftware(ctx context.Context, query string, limit int) ([]Software, error) {
	resp, err := tc.search(ctx, CategorySoftware, query, &limit)
	if err != nil {
		return nil, err
	}

	software := make([]Software, 0, len(resp.Results))
	for _, row := range resp.Results {
		software = append(software, Software{
			ID:          rowField(row, 0),
			CaseNumber:  rowField(row, 1),
			Title:       stripHighlight(rowField(row, 2)),
			Description: stripHighlight(rowField(row, 3)),
			Category:    rowField(row, 5),
			Center:      rowField(row, 9),
			ReleaseType: rowField(row, 10),
		})
		if len(software) == limit {
			break
		}
	}
	return software, nil
}

// SearchSpinoffs searches NASA spinoff technologies matching the query
func (tc *TechTransferClient) SearchSpinoffs(ctx context.Context, query string, limit int) ([]Spinoff, error) {
	resp, err := tc.search(ctx, CategorySpinoff, query, &limit)
	if err != nil {
		return nil, err
	}

	spinoffs := make([]Spinoff, 0, len(resp.Results))
	for _, row := range resp.Results {
		spinoffs = append(spinoffs, Spinoff{
			ID:          rowField(row, 0),
			Title:       stripHighlight(rowField(row, 1)),
			Description: stripHighlight(rowField(row, 2)),
			Category:    rowField(row, 3),
			Center:      rowField(row, 4),
		})
		if len(spinoffs) == limit {
			break
		}
	}
	return spinoffs, nil
}

// SearchAll searches every category, collecting per-category errors instead
// of failing the whole call.
func (tc *TechTransferClient) SearchAll(ctx context.Context, query string, limit int) map[string]SearchResult {
	results := make(map[string]SearchResult, 3)

	patents, err := tc.SearchPatents(ctx, query, limit)
	results[CategoryPatent] = SearchResult{Patents: patents, Err: err}

	software, err := tc.SearchSoftware(ctx, query, limit)
	results[CategorySoftware] = SearchResult{Software: software, Err: err}

	spinoffs, err := tc.SearchSpinoffs(ctx, query, limit)
	results[CategorySpinoff] = SearchResult{Spinoffs: spinoffs, Err: err}

	return results
}

// search issues the query and normalises the limit
func (tc *TechTransferClient) search(ctx context.Context, category, query string, limit *int) (*techTransferResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apierrors.Validation("search query cannot be empty")
	}
	if *limit <= 0 {
		*limit = DefaultSearchLimit
	}

	var resp techTransferResponse
	if err := tc.client.getJSON(ctx, tc.client.techTransferURL(category, query), &resp); err != nil {
		return nil, err
	}

	tc.logger.DebugWithFields("TechTransfer search completed", map[string]interface{}{
		"category": category,
		"query":    query,
		"count":    resp.Count,
		"total":    resp.Total,
	})

	return &resp, nil
}

// rowField extracts a string field from a positional result row, tolerating
// short rows and non-string values.
func rowField(row []interface{}, index int) string {
	if index >= len(row) {
		return ""
	}
	if s, ok := row[index].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// highlightRe matches the search-term markup the API embeds in text fields
var highlightRe = regexp.MustCompile(`</?span[^>]*>`)

// stripHighlight removes the highlight markup from a text field
func stripHighlight(s string) string {
	return highlightRe.ReplaceAllString(s, "")
}
