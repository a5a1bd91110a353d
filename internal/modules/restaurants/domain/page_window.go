package domain

// maxVisiblePages is the largest page count shown without ellipsis compression.
const maxVisiblePages = 5

// PageItem is one slot of a pagination bar: a literal one-based page or an ellipsis.
type PageItem struct {
	Number   int
	Ellipsis bool
}

func pageNumber(n int) PageItem { return PageItem{Number: n} }

var ellipsis = PageItem{Ellipsis: true}

// PageWindow computes the bounded page bar for totalPages and the one-based current page.
// Out-of-range current pages are clamped.
func PageWindow(totalPages, current int) []PageItem {
	if totalPages <= 0 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > totalPages {
		current = totalPages
	}

	if totalPages <= maxVisiblePages {
		items := make([]PageItem, 0, totalPages)
		for i := 1; i <= totalPages; i++ {
			items = append(items, pageNumber(i))
		}
		return items
	}

	items := make([]PageItem, 0, 7)
	items = append(items, pageNumber(1))
	if current > 3 {
		items = append(items, ellipsis)
	}
	for i := max(2, current-1); i <= min(totalPages-1, current+1); i++ {
		items = append(items, pageNumber(i))
	}
	if current < totalPages-2 {
		items = append(items, ellipsis)
	}
	if totalPages > 1 {
		items = append(items, pageNumber(totalPages))
	}
	return items
}
