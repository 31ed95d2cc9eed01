package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROPKIT_LANG", "")
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func restore(t *testing.T) {
	t.Helper()
	oldPo, oldCurrent := po, current
	t.Cleanup(func() { po, current = oldPo, oldCurrent })
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("PROPKIT_LANG wins", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("PROPKIT_LANG", "de")
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")

		assert.Equal(t, "de", detectLanguage())
	})

	t.Run("LANGUAGE before LC_ALL", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		assert.Equal(t, "ru_RU", detectLanguage())
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		assert.Equal(t, "fr_FR", detectLanguage())
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		assert.Equal(t, "en", detectLanguage())
	})
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	restore(t)
	po = nil

	assert.Equal(t, "Hello", T("Hello"))
	assert.Equal(t, "file", N("file", "files", 1))
	assert.Equal(t, "files", N("file", "files", 2))
}

func TestInitLoadsCatalog(t *testing.T) {
	restore(t)

	Init("de")
	assert.Equal(t, "de", Language())
	assert.Equal(t, "%s sortiert", T("Sorted %s"))
	assert.Equal(t, "Übersetze %s nach %s", T("Translating %s into %s"))
	assert.Equal(t, "%s geschrieben (%d Meldung)", N("Wrote %s (%d message)", "Wrote %s (%d messages)", 1))
	assert.Equal(t, "%s geschrieben (%d Meldungen)", N("Wrote %s (%d message)", "Wrote %s (%d messages)", 4))

	// Unknown msgids pass through.
	assert.Equal(t, "untranslated", T("untranslated"))
}

func TestInitDetectsFromEnvironment(t *testing.T) {
	restore(t)
	clearLocaleEnv(t)
	t.Setenv("PROPKIT_LANG", "ru")

	Init("")
	assert.Equal(t, "ru", Language())
	assert.Equal(t, "Исходный язык", T("Source language"))
}

func TestInitUnknownLanguage(t *testing.T) {
	restore(t)

	Init("xx")
	assert.Equal(t, "Sorted %s", T("Sorted %s"))
	assert.Equal(t, "files", N("file", "files", 2))
}
