package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	sortable := []string{"created_at", "name"}

	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{
			name:  "defaults",
			query: "",
			want:  Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name:  "explicit values",
			query: "?page=3&limit=25&search=rex&sortBy=name&sortOrder=asc",
			want:  Params{Page: 3, Limit: 25, Search: "rex", SortBy: "name", SortOrder: "asc"},
		},
		{
			name:  "invalid page and limit fall back",
			query: "?page=-1&limit=abc",
			want:  Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name:  "limit capped",
			query: "?limit=5000",
			want:  Params{Page: 1, Limit: 100, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name:  "unknown sort field rejected",
			query: "?sortBy=password_hash;+DROP+TABLE+users",
			want:  Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name:  "unknown sort order falls back to desc",
			query: "?sortOrder=sideways",
			want:  Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name:  "search trimmed",
			query: "?search=++fluffy++",
			want:  Params{Page: 1, Limit: 10, Search: "fluffy", SortBy: "created_at", SortOrder: "desc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/"+tt.query, nil)
			got := FromRequest(req, sortable, "created_at")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 40, Params{Page: 5, Limit: 10}.Offset())
	assert.Equal(t, 50, Params{Page: 3, Limit: 25}.Offset())
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		total int
		want  Meta
	}{
		{
			name:  "empty result",
			p:     Params{Page: 1, Limit: 10},
			total: 0,
			want:  Meta{Page: 1, Limit: 10, Total: 0, TotalPages: 0, HasNext: false, HasPrev: false},
		},
		{
			name:  "middle page",
			p:     Params{Page: 2, Limit: 10},
			total: 35,
			want:  Meta{Page: 2, Limit: 10, Total: 35, TotalPages: 4, HasNext: true, HasPrev: true},
		},
		{
			name:  "last page",
			p:     Params{Page: 4, Limit: 10},
			total: 35,
			want:  Meta{Page: 4, Limit: 10, Total: 35, TotalPages: 4, HasNext: false, HasPrev: true},
		},
		{
			name:  "exact multiple",
			p:     Params{Page: 1, Limit: 10},
			total: 20,
			want:  Meta{Page: 1, Limit: 10, Total: 20, TotalPages: 2, HasNext: true, HasPrev: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMeta(tt.p, tt.total))
		})
	}
}

func TestBuildSearchClause(t *testing.T) {
	t.Run("empty search", func(t *testing.T) {
		clause, args := BuildSearchClause("", []string{"name"}, 0)
		assert.Empty(t, clause)
		assert.Nil(t, args)
	})

	t.Run("single column", func(t *testing.T) {
		clause, args := BuildSearchClause("rex", []string{"name"}, 0)
		assert.Equal(t, "(name ILIKE $1)", clause)
		require.Len(t, args, 1)
		assert.Equal(t, "%rex%", args[0])
	})

	t.Run("multiple columns share one placeholder", func(t *testing.T) {
		clause, args := BuildSearchClause("rex", []string{"name", "breed"}, 2)
		assert.Equal(t, "(name ILIKE $3 OR breed ILIKE $3)", clause)
		require.Len(t, args, 1)
		assert.Equal(t, "%rex%", args[0])
	})
}
