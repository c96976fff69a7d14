package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips diacritics, lowercases and trims s so that "Madrí",
// "MADRI" and "madri" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Filter returns the stations matching term. When any station's
// municipality or locality equals the term only those exact matches are
// returned, otherwise every station containing the term in its name,
// municipality, locality, province, address or postal code. An empty term
// returns stations unchanged.
func Filter(stations []Station, term string) []Station {
	needle := Normalize(term)
	if needle == "" {
		return stations
	}

	exact := make([]Station, 0)
	for i := range stations {
		if Normalize(stations[i].Municipality) == needle || Normalize(stations[i].Locality) == needle {
			exact = append(exact, stations[i])
		}
	}
	if len(exact) > 0 {
		return exact
	}

	matches := make([]Station, 0)
	for i := range stations {
		s := &stations[i]
		fields := []string{s.Name, s.Municipality, s.Locality, s.Province, s.Address, s.PostalCode}
		for _, f := range fields {
			if strings.Contains(Normalize(f), needle) {
				matches = append(matches, *s)
				break
			}
		}
	}
	return matches
}
