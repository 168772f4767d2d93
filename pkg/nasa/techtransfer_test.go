package nasa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasagram/pkg/logger"
)

func newTestTechClient(t *testing.T, handler http.HandlerFunc) *TechTransferClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test_key", logger.NewTestLogger(), WithBaseURL(server.URL))
	return NewTechTransferClient(client)
}

func TestSearchPatents(t *testing.T) {
	tc := newTestTechClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/techtransfer/patent/", r.URL.Path)
		assert.Equal(t, "coating", r.URL.Query().Get("patent"))
		_, _ = w.Write([]byte(`{
			"results": [
				["1", "LAR-19002-1", "Thermal <span class=\"highlight\">Coating</span>", "An abstract.", "10,123,456", "materials", null, null, null, "LARC"],
				["2", "LAR-19003-1", "Another Coating", "More text.", "10,222,333", "materials", null, null, null, "LARC"]
			],
			"count": 2, "total": 2, "perpage": 25, "page": 0
		}`))
	})

	patents, err := tc.SearchPatents(context.Background(), "coating", 10)
	require.NoError(t, err)
	require.Len(t, patents, 2)

	assert.Equal(t, "LAR-19002-1", patents[0].CaseNumber)
	assert.Equal(t, "Thermal Coating", patents[0].Title, "highlight markup should be stripped")
	assert.Equal(t, "10,123,456", patents[0].PatentNumber)
	assert.Equal(t, "LARC", patents[0].Center)
}

func TestSearchPatentsHonoursLimit(t *testing.T) {
	tc := newTestTechClient(t, func(w http.ResponseWriter, r *http.Request) {
		rows := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			rows = append(rows, `["id", "case", "title", "abstract", "num", "cat", null, null, null, "LARC"]`)
		}
		_, _ = w.Write([]byte(`{"results": [` + strings.Join(rows, ",") + `], "count": 5, "total": 5}`))
	})

	patents, err := tc.SearchPatents(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Len(t, patents, 2, "limit should be applied client-side")
}

func TestSearchSoftwareShortRows(t *testing.T) {
	tc := newTestTechClient(t, func(w http.ResponseWriter, r *http.Request) {
		// A row shorter than the indexes we read from
		_, _ = w.Write([]byte(`{"results": [["1", "MSC-1", "Flight Tool"]], "count": 1}`))
	})

	software, err := tc.SearchSoftware(context.Background(), "flight", 10)
	require.NoError(t, err)
	require.Len(t, software, 1)

	assert.Equal(t, "Flight Tool", software[0].Title)
	assert.Empty(t, software[0].Center, "missing positions decode to empty strings")
	assert.Empty(t, software[0].ReleaseType)
}

func TestSearchSpinoffs(t *testing.T) {
	tc := newTestTechClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/techtransfer/spinoff/", r.URL.Path)
		_, _ = w.Write([]byte(`{"results": [["9", "Memory Foam", "Cushioning <span class=\"highlight\">foam</span>.", "consumer", "ARC"]], "count": 1}`))
	})

	spinoffs, err := tc.SearchSpinoffs(context.Background(), "foam", 10)
	require.NoError(t, err)
	require.Len(t, spinoffs, 1)

	assert.Equal(t, "Memory Foam", spinoffs[0].Title)
	assert.Equal(t, "Cushioning foam.", spinoffs[0].Description)
	assert.Equal(t, "ARC", spinoffs[0].Center)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	tc := newTestTechClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := tc.SearchPatents(context.Background(), "   ", 10)
	assert.Error(t, err)
}

func TestSearchAllCollectsPerCategoryErrors(t *testing.T) {
	tc := newTestTechClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Software search fails, the others succeed
		if strings.Contains(r.URL.Path, "software") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"results": [], "count": 0}`))
	})

	results := tc.SearchAll(context.Background(), "engine", 5)
	require.Len(t, results, 3)

	assert.NoError(t, results[CategoryPatent].Err)
	assert.Error(t, results[CategorySoftware].Err)
	assert.NoError(t, results[CategorySpinoff].Err)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"patent", "software", "spinoff"}, Categories())
}

func TestStripHighlight(t *testing.T) {
	assert.Equal(t, "plain", stripHighlight("plain"))
	assert.Equal(t, "a b", stripHighlight(`a <span class="highlight">b</span>`))
	assert.Equal(t, "nested", stripHighlight(`<span><span class="x">nested</span></span>`))
}
