package dashboard

import "lessonlink/internal/inventory"

// BandSummary counts the copies of one band.
type BandSummary struct {
	Band      inventory.Band `json:"band"`
	Total     int            `json:"total"`
	Available int            `json:"available"`
	Lent      int            `json:"lent"`
}

// Summarize counts books per band visible to role, in band order. Search
// and facets do not apply.
func (p Policy) Summarize(books []inventory.Book, role Role) []BandSummary {
	bands := p.VisibleBands(role)
	index := make(map[inventory.Band]int, len(bands))
	out := make([]BandSummary, len(bands))
	for i, b := range bands {
		out[i].Band = b
		index[b] = i
	}

	for _, book := range books {
		i, ok := index[book.Band]
		if !ok {
			continue
		}
		out[i].Total++
		if book.Status == inventory.Lent {
			out[i].Lent++
		} else {
			out[i].Available++
		}
	}
	return out
}
