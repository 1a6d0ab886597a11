package repository

import "testing"

func TestMaxInternalSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		ids    []string
		want   int
	}{
		{
			name:   "no existing tags",
			prefix: "PG",
			ids:    nil,
			want:   0,
		},
		{
			name:   "highest wins regardless of order",
			prefix: "PG",
			ids:    []string{"PG-0003", "PG-0011", "PG-0002"},
			want:   11,
		},
		{
			name:   "gaps from deleted rows do not reset numbering",
			prefix: "PG",
			ids:    []string{"PG-0007"},
			want:   7,
		},
		{
			name:   "longer prefixes sharing the stem are ignored",
			prefix: "PG",
			ids:    []string{"PG-0002", "PG-X-0009"},
			want:   2,
		},
		{
			name:   "non-numeric suffixes are ignored",
			prefix: "CA",
			ids:    []string{"CA-legacy", "CA-0004"},
			want:   4,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := maxInternalSuffix(tt.prefix, tt.ids); got != tt.want {
				t.Errorf("maxInternalSuffix(%q, %v) = %d, want %d", tt.prefix, tt.ids, got, tt.want)
			}
		})
	}
}
