package rank

import "sort"

// Labeler resolves a contest-type code to its display label.
type Labeler interface {
	Label(code string) string
}

type TypeCount struct {
	Code  string
	Label string
	Count int
}

// Summarize counts contests per type code, ordered by label. A single
// contest (or none) needs no summary, so nil is returned.
func Summarize(contests []Contest, labels Labeler) []TypeCount {
	if len(contests) <= 1 {
		return nil
	}

	index := map[string]int{}
	var counts []TypeCount
	for _, c := range contests {
		i, ok := index[c.TypeCode]
		if !ok {
			label := c.TypeCode
			if labels != nil {
				label = labels.Label(c.TypeCode)
			}
			i = len(counts)
			index[c.TypeCode] = i
			counts = append(counts, TypeCount{Code: c.TypeCode, Label: label})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Label < counts[j].Label
	})
	return counts
}
