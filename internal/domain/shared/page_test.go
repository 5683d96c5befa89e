package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, Filter{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{}.Offset())
	assert.Equal(t, 0, Filter{Page: 4}.Offset())
}

func TestPageCount(t *testing.T) {
	cases := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PageCount(c.total, c.pageSize), "total=%d size=%d", c.total, c.pageSize)
	}
}

func TestNewPaginated(t *testing.T) {
	page := NewPaginated([]string{"INV-1", "INV-2"}, 7, 2, 2)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 2)
}
