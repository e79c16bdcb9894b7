package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortMessages(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)
	tests := []struct {
		name string
		in   []Message
		want []string
	}{
		{
			"ascending",
			[]Message{{ID: "b", CreatedAt: t1}, {ID: "a", CreatedAt: t0}},
			[]string{"a", "b"},
		},
		{
			"equal timestamps keep arrival order",
			[]Message{{ID: "3", CreatedAt: t0}, {ID: "1", CreatedAt: t0}, {ID: "2", CreatedAt: t0}},
			[]string{"3", "1", "2"},
		},
		{
			"ties inside a mixed set",
			[]Message{{ID: "late", CreatedAt: t1}, {ID: "x", CreatedAt: t0}, {ID: "y", CreatedAt: t0}, {ID: "z", CreatedAt: t1}},
			[]string{"x", "y", "late", "z"},
		},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortMessages(tt.in)
			got := make([]string, 0, len(tt.in))
			for _, m := range tt.in {
				got = append(got, m.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
