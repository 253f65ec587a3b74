package history

import "strconv"

const windowSize = 5

// PageItem is one pagination control: a page number or an ellipsis marker.
type PageItem struct {
	Number   int
	Ellipsis bool
	Current  bool
}

func (p PageItem) String() string {
	if p.Ellipsis {
		return "…"
	}
	return strconv.Itoa(p.Number)
}

// Window lays out at most five numbered pages around current, clamped to
// [1, total]. The first and last pages are always present, separated from the
// window by an ellipsis when there is a gap.
func Window(current, total int) []PageItem {
	total = max(1, total)
	current = min(max(1, current), total)

	start := max(1, current-windowSize/2)
	end := min(total, start+windowSize-1)
	if end-start+1 < windowSize {
		start = max(1, end-windowSize+1)
	}

	items := make([]PageItem, 0, windowSize+4)
	if start > 1 {
		items = append(items, PageItem{Number: 1})
		if start > 2 {
			items = append(items, PageItem{Ellipsis: true})
		}
	}
	for n := start; n <= end; n++ {
		items = append(items, PageItem{Number: n, Current: n == current})
	}
	if end < total {
		if end < total-1 {
			items = append(items, PageItem{Ellipsis: true})
		}
		items = append(items, PageItem{Number: total})
	}

	return items
}
