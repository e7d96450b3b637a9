package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FileSuffix ends every exported document name.
const FileSuffix = "_map.pdf"

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Filename derives the document file name from a parcel name: accents are
// folded, whitespace runs become one underscore and path separators are
// dropped.
func Filename(parcelName string) string {
	folded, _, err := transform.String(stripMarks, parcelName)
	if err != nil {
		folded = parcelName
	}

	var b strings.Builder
	for _, word := range strings.Fields(folded) {
		word = strings.Map(func(r rune) rune {
			if r == '/' || r == '\\' || unicode.IsControl(r) {
				return -1
			}
			return r
		}, word)
		if word == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		b.WriteString(word)
	}
	if b.Len() == 0 {
		b.WriteString("parcel")
	}
	return b.String() + FileSuffix
}
