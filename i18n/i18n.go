// Package i18n translates propkit's own user-facing messages.
//
// Catalogs are gettext .po files embedded from locales/<lang>/LC_MESSAGES/
// and read with gotext. Untranslated strings pass through unchanged.
//
//	i18n.Init("")  // detect from PROPKIT_LANG/LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("Done"))
//	fmt.Println(i18n.N("%d key missing", "%d keys missing", n))
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "propkit"

var (
	po      *gotext.Locale
	current string
)

// Init loads the catalog for lang, detecting it from the environment when
// empty. Call it once before the first T or N.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	current = lang
	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the language passed to or detected by Init, or "" before
// Init.
func Language() string {
	return current
}

// T translates a string.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows the GNU gettext lookup order, with PROPKIT_LANG
// taking precedence over all of it.
func detectLanguage() string {
	for _, env := range []string{"PROPKIT_LANG", "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated list.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
