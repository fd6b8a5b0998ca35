package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{name: "defaults", query: "", wantPage: 1, wantSize: 20, wantOffset: 0},
		{name: "explicit page and size", query: "?page=3&page_size=10", wantPage: 3, wantSize: 10, wantOffset: 20},
		{name: "page below minimum clamps to 1", query: "?page=0", wantPage: 1, wantSize: 20, wantOffset: 0},
		{name: "size above maximum clamps to 100", query: "?page_size=500", wantPage: 1, wantSize: 100, wantOffset: 0},
		{name: "non-numeric falls back to defaults", query: "?page=abc&page_size=xyz", wantPage: 1, wantSize: 20, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/tasks"+tt.query, nil)
			params := ParsePageParams(r)

			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantSize, params.PageSize)
			assert.Equal(t, tt.wantOffset, params.Offset)
		})
	}
}

func TestCalculateMeta(t *testing.T) {
	t.Run("middle page has next", func(t *testing.T) {
		params := PageParams{Page: 2, PageSize: 10}
		meta := params.CalculateMeta(35)

		assert.Equal(t, 4, meta.TotalPages)
		assert.Equal(t, int64(35), meta.TotalItems)
		assert.True(t, meta.HasNext)
	})

	t.Run("last page has no next", func(t *testing.T) {
		params := PageParams{Page: 4, PageSize: 10}
		meta := params.CalculateMeta(35)

		assert.False(t, meta.HasNext)
	})

	t.Run("empty result set still reports one page", func(t *testing.T) {
		params := PageParams{Page: 1, PageSize: 20}
		meta := params.CalculateMeta(0)

		assert.Equal(t, 1, meta.TotalPages)
		assert.False(t, meta.HasNext)
	})
}

func TestExtractClientIP(t *testing.T) {
	t.Run("x-forwarded-for with chain takes first", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.1")
		assert.Equal(t, "203.0.113.42", ExtractClientIP(r))
	})

	t.Run("x-real-ip fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", "203.0.113.7")
		assert.Equal(t, "203.0.113.7", ExtractClientIP(r))
	})

	t.Run("remote addr strips port", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "192.0.2.5:54321"
		assert.Equal(t, "192.0.2.5", ExtractClientIP(r))
	})

	t.Run("ipv6 remote addr strips brackets and port", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "[::1]:8080"
		assert.Equal(t, "::1", ExtractClientIP(r))
	})
}
