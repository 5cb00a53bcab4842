package search_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqmarket/internal/search"
)

func TestParsePage(t *testing.T) {
	p := search.ParsePage(url.Values{}, search.DefaultLimit)
	require.Equal(t, search.Page{Page: 1, Limit: 20}, p)
	require.Equal(t, 0, p.Offset())

	p = search.ParsePage(url.Values{"page": {"3"}, "limit": {"10"}}, search.DefaultLimit)
	require.Equal(t, 20, p.Offset())

	p = search.ParsePage(url.Values{"page": {"-1"}, "limit": {"5000"}}, search.DefaultLimit)
	require.Equal(t, search.Page{Page: 1, Limit: search.MaxLimit}, p)

	require.Equal(t, search.Pagination{Total: 41, Page: 1, Limit: 20, Pages: 3}, search.Page{Page: 1, Limit: 20}.Result(41))
}

func TestContainsEscapesWildcards(t *testing.T) {
	require.Equal(t, `%100\% alu\_mix%`, search.Contains(" 100% alu_mix "))
}

func TestRFQFilterEmpty(t *testing.T) {
	var w search.Where
	search.ParseRFQFilter(url.Values{}).Apply(&w)
	require.Equal(t, "", w.SQL())
	require.Empty(t, w.Args())
}

func TestRFQFilterDimensionsShareOneWorkpiece(t *testing.T) {
	q := url.Values{"length": {"150"}, "height": {"30"}, "diameter": {"x"}}
	var w search.Where
	search.ParseRFQFilter(q).Apply(&w)

	sql := w.SQL()
	require.Equal(t, 1, strings.Count(sql, "jsonb_array_elements(workpieces)"))
	assert.Contains(t, sql, "(wp->'dimensions'->>'length')::float8 <= $1 AND")
	assert.Contains(t, sql, "(wp->'dimensions'->>'height')::float8 <= $2)")
	assert.NotContains(t, sql, "diameter")
	require.Equal(t, []interface{}{150.0, 30.0}, w.Args())
}

func TestRFQFilterMissingDimensionFails(t *testing.T) {
	var w search.Where
	search.ParseRFQFilter(url.Values{"diameter": {"40"}}).Apply(&w)

	sql := w.SQL()
	assert.Contains(t, sql, "WHERE (wp->'dimensions'->>'diameter')::float8 <= $1)")
	assert.NotContains(t, sql, "COALESCE")
	require.Equal(t, []interface{}{40.0}, w.Args())
}

func TestRFQFilterConjunction(t *testing.T) {
	manufacturer := uuid.New()
	q := url.Values{
		"keyword":        {"bracket"},
		"technologies":   {"CNC,MILLING"},
		"certifications": {"ISO_9001"},
		"country":        {"ind"},
		"quantity":       {"50"},
	}
	f := search.ParseRFQFilter(q)
	f.Statuses = []string{"OPEN_FOR_REQUESTS", "REQUESTS_PENDING"}
	f.ExcludeRequestedBy = manufacturer

	var w search.Where
	f.Apply(&w)
	sql := w.SQL()

	require.True(t, strings.HasPrefix(sql, "WHERE status = ANY($1) AND "))
	assert.Contains(t, sql, "mr.manufacturer_id = $2")
	assert.Contains(t, sql, "(title ILIKE $3 OR description ILIKE $4 OR request_justification ILIKE $5)")
	assert.Contains(t, sql, "country ILIKE $6")
	assert.Contains(t, sql, "required_certificates && $7")
	assert.Contains(t, sql, "wp->>'technology' = ANY($8)")
	assert.Contains(t, sql, "(wp->>'quantity')::int >= $9")
	require.Len(t, w.Args(), 9)
	require.Equal(t, manufacturer, w.Args()[1])
	require.Equal(t, "%bracket%", w.Args()[2])
	require.Equal(t, []string{"CNC", "MILLING"}, f.Technologies)
}

func TestManufacturerFilter(t *testing.T) {
	q := url.Values{"technologies": {"CNC"}, "material": {"steel"}, "keyword": {"acme"}}
	var w search.Where
	search.ParseManufacturerFilter(q).Apply(&w)
	sql := w.SQL()

	assert.Contains(t, sql, "role IN ('MANUFACTURER', 'HYBRID')")
	assert.Contains(t, sql, "manufacturer_status = 'ACTIVE'")
	assert.Contains(t, sql, "(company_name ILIKE $1 OR full_name ILIKE $2)")
	assert.Contains(t, sql, "jsonb_exists_any(COALESCE(manufacturer_settings->'technologies', '[]'::jsonb), $3)")
	assert.Contains(t, sql, "manufacturer_settings->'materials'")
	require.Len(t, w.Args(), 4)
}
