package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		req        PageRequest
		n          int
		wantPages  int
		wantFirst  bool
		wantLast   bool
		wantSize   int
		wantLength int
	}{
		{name: "empty", total: 0, req: PageRequest{Page: 0, Size: 20}, n: 0, wantPages: 0, wantFirst: true, wantLast: true, wantSize: 20},
		{name: "first of three", total: 45, req: PageRequest{Page: 0, Size: 20}, n: 20, wantPages: 3, wantFirst: true, wantLast: false, wantSize: 20, wantLength: 20},
		{name: "last partial", total: 45, req: PageRequest{Page: 2, Size: 20}, n: 5, wantPages: 3, wantFirst: false, wantLast: true, wantSize: 20, wantLength: 5},
		{name: "size defaults", total: 3, req: PageRequest{Page: -1, Size: 0}, n: 3, wantPages: 1, wantFirst: true, wantLast: true, wantSize: DefaultPageSize, wantLength: 3},
		{name: "size clamped and content truncated", total: 500, req: PageRequest{Size: 1000}, n: 150, wantPages: 5, wantFirst: true, wantSize: MaxPageSize, wantLength: MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(make([]int, tt.n), tt.total, tt.req)
			require.Equal(t, tt.wantPages, p.TotalPages)
			require.Equal(t, tt.wantFirst, p.First)
			require.Equal(t, tt.wantLast, p.Last)
			require.Equal(t, tt.wantSize, p.Size)
			require.Len(t, p.Content, tt.wantLength)
			require.NotNil(t, p.Content)
			require.LessOrEqual(t, len(p.Content), p.Size)
		})
	}
}

func TestNormalize_ClampsHugePage(t *testing.T) {
	req := PageRequest{Page: math.MaxInt64 / 10, Size: 20}.Normalize()

	require.Equal(t, math.MaxInt32/20, req.Page)
	require.Positive(t, req.Offset())
	require.LessOrEqual(t, req.Offset(), math.MaxInt32)
}

func TestMapPageKeepsMetadata(t *testing.T) {
	p := NewPage([]int{1, 2}, 12, PageRequest{Page: 1, Size: 2})
	mapped := MapPage(p, func(v int) string { return string(rune('a' + v)) })

	require.Equal(t, []string{"b", "c"}, mapped.Content)
	require.Equal(t, p.TotalElements, mapped.TotalElements)
	require.Equal(t, p.TotalPages, mapped.TotalPages)
	require.Equal(t, 1, mapped.Number)
	require.False(t, mapped.First)
}
