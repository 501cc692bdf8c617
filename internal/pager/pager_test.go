package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffset(t *testing.T) {
	t.Parallel()

	for page := 1; page <= 20; page++ {
		assert.Equal(t, (page-1)*10, New(page, 10, 500).Offset())
	}
}

func TestPrevNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		page     int
		total    int
		wantPrev bool
		wantNext bool
	}{
		{"first of many", 1, 35, false, true},
		{"middle", 2, 35, true, true},
		{"last partial", 4, 35, true, false},
		{"exact boundary", 3, 30, true, false},
		{"single page", 1, 7, false, false},
		{"empty", 1, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := New(tt.page, 10, tt.total)
			assert.Equal(t, tt.wantPrev, p.HasPrev())
			assert.Equal(t, tt.wantNext, p.HasNext())
			assert.Equal(t, p.Page*p.Limit < p.Total, p.HasNext())
		})
	}
}

func TestNew_Clamps(t *testing.T) {
	t.Parallel()

	p := New(0, 0, -3)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 1, p.Prev())
}

func TestPagesAndRange(t *testing.T) {
	t.Parallel()

	p := New(4, 10, 35)
	assert.Equal(t, 4, p.Pages())
	first, last := p.Range()
	assert.Equal(t, 31, first)
	assert.Equal(t, 35, last)

	first, last = New(1, 10, 0).Range()
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, last)
	assert.Equal(t, 1, New(1, 10, 0).Pages())
	assert.Equal(t, 12, New(2, 10, 0).WithTotal(12).Total)
}
