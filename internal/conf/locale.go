// conf/locale.go contains the locales survey documents can be rendered in

package conf

import (
	"fmt"
	"strings"
)

const (
	LocaleSerbianLatin = "sr-Latn"
	LocaleEnglish      = "en"
)

// SupportedLocales lists the render locales with a message catalog
var SupportedLocales = []string{LocaleSerbianLatin, LocaleEnglish}

// NormalizeLocale maps user input such as "sr", "SR-latn" or "en-US" to a supported locale.
func NormalizeLocale(input string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(input)); {
	case l == "sr" || l == "sr-latn" || l == "sr_latn" || strings.HasPrefix(l, "sr-latn-"):
		return LocaleSerbianLatin, nil
	case l == "en" || strings.HasPrefix(l, "en-") || strings.HasPrefix(l, "en_"):
		return LocaleEnglish, nil
	default:
		return "", fmt.Errorf("unsupported locale %q, supported locales are %v", input, SupportedLocales)
	}
}
