package export

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// linkingWords are skipped when picking the last significant word of a
// cultivar name.
var linkingWords = map[string]bool{
	"di": true, "de": true, "del": true, "della": true,
	"da": true, "delle": true, "dei": true, "dello": true,
	"degli": true, "d'": true,
}

var upper = cases.Upper(language.Und)

// Initials derives the badge text of a cultivar: up to two upper case
// letters.
func Initials(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		return upper.String(firstRunes(words[0], 2))
	case 2:
		return upper.String(firstRunes(words[0], 1) + firstRunes(words[1], 1))
	}

	var significant []string
	for _, w := range words {
		if !linkingWords[strings.ToLower(w)] {
			significant = append(significant, w)
		}
	}
	switch len(significant) {
	case 0:
		return upper.String(firstRunes(words[0], 2))
	case 1:
		return upper.String(firstRunes(significant[0], 2))
	}
	return upper.String(firstRunes(words[0], 1) + firstRunes(significant[len(significant)-1], 1))
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
