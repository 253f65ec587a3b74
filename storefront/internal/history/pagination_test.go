package history_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/pizzeria/storefront/internal/history"
)

func render(items []history.PageItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, ",")
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{name: "first_of_ten", current: 1, total: 10, want: "1,2,3,4,5,…,10"},
		{name: "last_of_ten", current: 10, total: 10, want: "1,…,6,7,8,9,10"},
		{name: "middle_of_ten", current: 5, total: 10, want: "1,…,3,4,5,6,7,…,10"},
		{name: "deep_middle", current: 50, total: 100, want: "1,…,48,49,50,51,52,…,100"},
		{name: "gap_of_one_has_no_ellipsis", current: 4, total: 10, want: "1,2,3,4,5,6,…,10"},
		{name: "near_end", current: 8, total: 10, want: "1,…,6,7,8,9,10"},
		{name: "single_page", current: 1, total: 1, want: "1"},
		{name: "fewer_than_window", current: 2, total: 3, want: "1,2,3"},
		{name: "exactly_window", current: 3, total: 5, want: "1,2,3,4,5"},
		{name: "six_pages_start", current: 1, total: 6, want: "1,2,3,4,5,6"},
		{name: "current_beyond_total_clamped", current: 99, total: 4, want: "1,2,3,4"},
		{name: "zero_total", current: 1, total: 0, want: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(history.Window(tt.current, tt.total)))
		})
	}
}

func TestWindow_MarksCurrent(t *testing.T) {
	items := history.Window(3, 10)

	var current []int
	numbered := 0
	for _, it := range items {
		if it.Current {
			current = append(current, it.Number)
		}
		if !it.Ellipsis {
			numbered++
		}
	}

	assert.Equal(t, []int{3}, current)
	assert.LessOrEqual(t, numbered, 7)
}
