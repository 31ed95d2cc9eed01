// Package langmeta validates language codes passed on the command line and
// provides display names for them in CLI output.
package langmeta

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Code is the canonical BCP 47 form, e.g. "pt-BR".
	Code string
	// Name is the language's own name for itself ("Deutsch").
	Name string
	// English is the English name ("German").
	English string
}

// Label returns "Name (English)", or just one of them when they coincide or
// one is unknown.
func (m Meta) Label() string {
	switch {
	case m.Name == "" && m.English == "":
		return m.Code
	case m.Name == "" || strings.EqualFold(m.Name, m.English):
		return m.English
	case m.English == "":
		return m.Name
	}
	return m.Name + " (" + m.English + ")"
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Parse validates lang as a BCP 47 tag. POSIX-style codes ("pt_BR") are
// accepted.
func Parse(lang string) (language.Tag, error) {
	c := canonicalize(lang)
	if c == "" {
		return language.Und, fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(c)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", lang, err)
	}
	return tag, nil
}

// Validate reports whether lang is a usable language code.
func Validate(lang string) error {
	_, err := Parse(lang)
	return err
}

// Resolve returns best-effort language metadata for a code. Unknown codes
// pass through with the code as the name.
func Resolve(lang string) Meta {
	tag, err := Parse(lang)
	if err != nil {
		return Meta{Code: lang, Name: lang}
	}
	return Meta{
		Code:    tag.String(),
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
	}
}
