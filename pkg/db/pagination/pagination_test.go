package pagination

import "testing"

func TestNormalizeClampsPageAndSize(t *testing.T) {
	cases := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{name: "defaults", in: Pagination{}, want: Pagination{Page: 1, Size: DefaultPageSize}},
		{name: "negative page", in: Pagination{Page: -3, Size: 10}, want: Pagination{Page: 1, Size: 10}},
		{name: "oversized", in: Pagination{Page: 2, Size: 10_000}, want: Pagination{Page: 2, Size: MaxPageSize}},
		{name: "in range untouched", in: Pagination{Page: 4, Size: 50}, want: Pagination{Page: 4, Size: 50}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	p := Pagination{Page: 3, Size: 25}
	if got := p.Offset(); got != 50 {
		t.Fatalf("expected offset 50, got %d", got)
	}
}

func TestBuildPageInfo(t *testing.T) {
	cases := []struct {
		name        string
		page        Pagination
		total       int64
		hasNext     bool
		hasPrevious bool
	}{
		{name: "first of many", page: Pagination{Page: 1, Size: 25}, total: 60, hasNext: true, hasPrevious: false},
		{name: "middle", page: Pagination{Page: 2, Size: 25}, total: 60, hasNext: true, hasPrevious: true},
		{name: "last partial", page: Pagination{Page: 3, Size: 25}, total: 60, hasNext: false, hasPrevious: true},
		{name: "exact boundary", page: Pagination{Page: 2, Size: 30}, total: 60, hasNext: false, hasPrevious: true},
		{name: "empty", page: Pagination{Page: 1, Size: 25}, total: 0, hasNext: false, hasPrevious: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := BuildPageInfo(tc.page, tc.total)
			if info.HasNext != tc.hasNext || info.HasPrevious != tc.hasPrevious {
				t.Fatalf("expected hasNext=%v hasPrevious=%v, got %+v", tc.hasNext, tc.hasPrevious, info)
			}
			if info.Total != tc.total || info.Page != tc.page.Page || info.Size != tc.page.Size {
				t.Fatalf("page info echoes request: %+v", info)
			}
		})
	}
}
