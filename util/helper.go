package util

import (
	"strings"
)

var isoLangCodes = map[string]string{
	"en": "en_US",
	"ru": "ru_RU",
	"uk": "uk_UA",
}

// IetfToIsoLangCode converts a telegram-style language code ("ru", "en-US")
// to the locale name lctime understands.
func IetfToIsoLangCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i != -1 {
		lang = lang[:i]
	}

	code, ok := isoLangCodes[lang]
	if !ok {
		return isoLangCodes["en"]
	}
	return code
}

// UniqueStrings returns values without duplicates, keeping the first occurrence.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}
