package utils

import (
	"strings"
	"unicode"
)

// SanitizeFilename folds a filename down to printable ASCII so it is safe to
// use as part of a storage object key. Accented Latin letters lose their
// diacritics; anything else outside ASCII becomes a dash.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(filename))

	for _, r := range filename {
		switch {
		case r < 128 && unicode.IsPrint(r):
			b.WriteRune(r)
		case unicode.Is(unicode.Latin, r):
			b.WriteRune(foldLatin(r))
		default:
			b.WriteRune('-')
		}
	}

	return b.String()
}

// foldLatin strips the diacritic from a Latin-1 letter, or returns '-' when
// no plain ASCII form exists.
func foldLatin(r rune) rune {
	switch {
	case r >= 'À' && r <= 'Å':
		return 'A'
	case r >= 'à' && r <= 'å':
		return 'a'
	case r >= 'È' && r <= 'Ë':
		return 'E'
	case r >= 'è' && r <= 'ë':
		return 'e'
	case r >= 'Ì' && r <= 'Ï':
		return 'I'
	case r >= 'ì' && r <= 'ï':
		return 'i'
	case r >= 'Ò' && r <= 'Ö':
		return 'O'
	case r >= 'ò' && r <= 'ö':
		return 'o'
	case r >= 'Ù' && r <= 'Ü':
		return 'U'
	case r >= 'ù' && r <= 'ü':
		return 'u'
	case r == 'Ç':
		return 'C'
	case r == 'ç':
		return 'c'
	case r == 'Ñ':
		return 'N'
	case r == 'ñ':
		return 'n'
	}
	return '-'
}
