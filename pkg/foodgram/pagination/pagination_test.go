package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestNewDefaults(t *testing.T) {
	pg := New(0, 0)
	assert.Equal(t, 6, pg.DefaultSize)
	assert.Equal(t, 100, pg.MaxSize)

	pg = New(10, 20)
	assert.Equal(t, 10, pg.DefaultSize)
	assert.Equal(t, 20, pg.MaxSize)
}

func TestParse(t *testing.T) {
	pg := New(6, 100)

	cases := []struct {
		query string
		want  Params
	}{
		{"/api/recipes", Params{Page: 1, Limit: 6}},
		{"/api/recipes?page=3&limit=10", Params{Page: 3, Limit: 10}},
		{"/api/recipes?page=0&limit=-1", Params{Page: 1, Limit: 6}},
		{"/api/recipes?page=abc", Params{Page: 1, Limit: 6}},
		{"/api/recipes?limit=1000", Params{Page: 1, Limit: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, pg.Parse(testContext(tc.query)))
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 6}.Offset())
	assert.Equal(t, 12, Params{Page: 3, Limit: 6}.Offset())
}

func TestNewPageLinks(t *testing.T) {
	c := testContext("http://example.com/api/recipes?page=2&limit=2&tags=lunch")
	page := NewPage(c, Params{Page: 2, Limit: 2}, 5, []int{3, 4})

	assert.Equal(t, int64(5), page.Count)
	assert.Equal(t, []int{3, 4}, page.Results)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/api/recipes?limit=2&page=3&tags=lunch", *page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/recipes?limit=2&tags=lunch", *page.Previous)
}

func TestNewPageBoundaries(t *testing.T) {
	c := testContext("http://example.com/api/users")
	page := NewPage[string](c, Params{Page: 1, Limit: 6}, 0, nil)

	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
}
