// Package i18n localizes bbt's own command line output. It has nothing to
// do with the project catalogs bbt manages.
//
// The English msgids are the source. The zh_CN catalog is embedded and picked
// by the user's locale, so a developer on a Chinese desktop reads Chinese
// progress lines while the master file and locale files stay as they are:
//
//	i18n.Init("")
//	logSuccess(i18n.N("Wrote %d file", "Wrote %d files", n), n)
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// locales holds locales/{lang}/LC_MESSAGES/bbt.po.
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for bbt.
const domain = "bbt"

// supported lists the catalog directories, English (the msgids) first.
var supported = []string{"en", "zh_CN"}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.SimplifiedChinese,
})

var po *gotext.Locale

// Init selects the CLI catalog for lang, or for the environment's locale
// when lang is empty. main calls it before the root command is built so
// flag help is localized too.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(resolve(lang), locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T returns the localized CLI message for msgid, or msgid itself.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N is T for counted messages such as "Wrote %d file". Before Init it
// falls back to English plural rules.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// resolve maps a locale such as zh_TW.UTF-8 or zh-Hans to the closest
// embedded catalog.
func resolve(lang string) string {
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return supported[0]
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// detectLanguage returns the first usable locale from LANGUAGE, LC_ALL,
// LC_MESSAGES and LANG, in gettext's priority order.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			// LANGUAGE can be a colon-separated list; take the first
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			// Strip encoding suffix (e.g. "zh_CN.UTF-8" -> "zh_CN")
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			// Skip "C" and "POSIX": these mean no translation
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
