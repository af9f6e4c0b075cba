// Package prefs persists the user's display preferences in the local area.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/typed"
)

// Storage keys, shared with the browser client.
const (
	KeyDarkMode = "darkMode"
	KeyLanguage = "language"
)

// DefaultLocale is used when no valid locale is stored.
const DefaultLocale = "en"

// Locales lists the supported locale codes.
var Locales = []string{
	"en", "de", "el", "es", "et", "fi", "fr", "hi", "hr", "hu", "id", "it", "ja", "ko",
	"nl", "no", "pl", "pt-PT", "ru", "sv", "th", "fil", "zh-CN", "tr", "vi", "zh-TW",
	"uk", "pt-BR",
}

// ErrUnknownLocale is returned when saving a locale outside Locales.
var ErrUnknownLocale = errors.New("unknown locale")

// ValidLocale reports whether code is a supported locale.
func ValidLocale(code string) bool {
	return slices.Contains(Locales, code)
}

// Preferences are the persisted display settings.
type Preferences struct {
	DarkMode bool   `json:"darkMode"`
	Locale   string `json:"language"`
}

// Defaults returns the preferences used before anything is stored.
func Defaults() Preferences {
	return Preferences{Locale: DefaultLocale}
}

// Store loads and saves Preferences.
type Store struct {
	darkMode *typed.Value[bool]
	language *typed.Value[string]
}

// NewStore creates a store over area, normally the local one.
func NewStore(area core.StorageArea) *Store {
	return &Store{
		darkMode: typed.NewValue(area, KeyDarkMode, false),
		language: typed.NewValue(area, KeyLanguage, DefaultLocale),
	}
}

// Load reads the preferences. Missing or invalid values fall back to the
// defaults; the returned preferences are usable even when err is not nil.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	dark, errDark := s.darkMode.Load(ctx)
	locale, errLang := s.language.Load(ctx)
	if !ValidLocale(locale) {
		locale = DefaultLocale
	}
	return Preferences{DarkMode: dark, Locale: locale}, errors.Join(errDark, errLang)
}

// Save writes both preferences.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	if !ValidLocale(p.Locale) {
		return fmt.Errorf("%w: %q", ErrUnknownLocale, p.Locale)
	}
	if err := s.darkMode.Save(ctx, p.DarkMode); err != nil {
		return err
	}
	return s.language.Save(ctx, p.Locale)
}

// Apply updates p with the preference keys touched by cs.
func (s *Store) Apply(p Preferences, cs core.ChangeSet) Preferences {
	if dark, ok := s.darkMode.Decode(cs); ok {
		p.DarkMode = dark
	}
	if locale, ok := s.language.Decode(cs); ok {
		if !ValidLocale(locale) {
			locale = DefaultLocale
		}
		p.Locale = locale
	}
	return p
}
