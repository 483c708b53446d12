package contest

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleExceptions = map[string]string{
	"nc": "NC",
	"of": "of",
	"us": "US",
}

// Title recases an upper-case feed label for display, e.g.
// "NC STATE HOUSE OF REPRESENTATIVES" -> "NC State House of Representatives".
func Title(text string) string {
	caser := cases.Title(language.English)
	words := strings.Fields(text)
	for i, w := range words {
		if e, ok := titleExceptions[strings.ToLower(w)]; ok {
			words[i] = e
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
