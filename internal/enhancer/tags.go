package enhancer

import (
	"strings"
	"unicode"
)

// nationalities maps the demonym tags Last.fm users apply to artists onto ISO 3166 country codes.
var nationalities = map[string]string{
	"american":      "US",
	"usa":           "US",
	"british":       "GB",
	"uk":            "GB",
	"english":       "GB",
	"scottish":      "GB",
	"welsh":         "GB",
	"irish":         "IE",
	"canadian":      "CA",
	"australian":    "AU",
	"new zealand":   "NZ",
	"french":        "FR",
	"german":        "DE",
	"deutsch":       "DE",
	"swedish":       "SE",
	"norwegian":     "NO",
	"danish":        "DK",
	"finnish":       "FI",
	"icelandic":     "IS",
	"dutch":         "NL",
	"belgian":       "BE",
	"spanish":       "ES",
	"italian":       "IT",
	"portuguese":    "PT",
	"brazilian":     "BR",
	"mexican":       "MX",
	"argentinian":   "AR",
	"japanese":      "JP",
	"korean":        "KR",
	"chinese":       "CN",
	"russian":       "RU",
	"polish":        "PL",
	"south african": "ZA",
	"jamaican":      "JM",
	"nigerian":      "NG",
}

// ignoredTags are popular Last.fm tags that describe listeners rather than music.
var ignoredTags = map[string]bool{
	"seen live":            true,
	"favorites":            true,
	"favourites":           true,
	"favorite":             true,
	"love":                 true,
	"awesome":              true,
	"beautiful":            true,
	"albums i own":         true,
	"under 2000 listeners": true,
	"female vocalists":     true,
	"male vocalists":       true,
}

func countryFromTags(tags []string) string {
	for _, t := range tags {
		if code, ok := nationalities[strings.ToLower(strings.TrimSpace(t))]; ok {
			return code
		}
	}
	return ""
}

// genreFromTags picks the highest ranked tag that names a genre.
func genreFromTags(tags []string) string {
	for _, t := range tags {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || ignoredTags[key] || isDecade(key) {
			continue
		}
		if _, ok := nationalities[key]; ok {
			continue
		}
		return titleCase(key)
	}
	return ""
}

// isDecade matches "80s", "1990s" and friends.
func isDecade(tag string) bool {
	if !strings.HasSuffix(tag, "s") {
		return false
	}
	digits := strings.TrimSuffix(tag, "s")
	if len(digits) != 2 && len(digits) != 4 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func titleCase(s string) string {
	runes := []rune(s)
	upper := true
	for i, r := range runes {
		if upper {
			runes[i] = unicode.ToUpper(r)
		}
		upper = r == ' ' || r == '-' || r == '/'
	}
	return string(runes)
}
