package projects

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackSlug is returned when a title has no usable characters.
const FallbackSlug = "template"

var (
	cyrillic = map[rune]string{
		'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
		'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
		'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
		'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
		'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	}
	nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Slugify turns a title into a URL-safe slug. Cyrillic is transliterated,
// other letters are folded to ASCII and everything else collapses to "-".
func Slugify(value string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(isNonASCII))),
		transliterate(value),
	)
	if err != nil {
		folded = ""
	}
	slug := strings.ToLower(strings.Trim(nonAlnum.ReplaceAllString(folded, "-"), "-"))
	if slug == "" {
		return FallbackSlug
	}
	return slug
}

func transliterate(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		mapped, ok := cyrillic[unicode.ToLower(r)]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if unicode.IsUpper(r) {
			mapped = strings.ToUpper(mapped)
		}
		b.WriteString(mapped)
	}
	return b.String()
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}
