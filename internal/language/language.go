// Package language resolves the configured translation target and checks
// whether refined output is written in it.
package language

import (
	"fmt"
	"strings"
	"sync"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Target is a resolved translation target.
type Target struct {
	Tag language.Tag

	// Name is the English display name (e.g. "Korean").
	Name string

	// Native is the name in the language itself (e.g. "한국어").
	Native string
}

// Code returns the ISO 639-1 base code (e.g. "ko").
func (t Target) Code() string {
	base, _ := t.Tag.Base()
	return base.String()
}

// Label renders the target for prompts, e.g. "Korean (한국어)".
func (t Target) Label() string {
	if t.Native == "" || strings.EqualFold(t.Native, t.Name) {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Native)
}

// Resolve accepts a BCP 47 tag ("ko", "en-US") or an English language name
// ("Korean") and returns the matching Target.
func Resolve(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("empty target language")
	}

	if tag, err := language.Parse(s); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return newTarget(tag, name), nil
		}
	}

	for _, tag := range display.Supported.Tags() {
		if strings.EqualFold(display.English.Languages().Name(tag), s) {
			return newTarget(tag, display.English.Languages().Name(tag)), nil
		}
	}
	return Target{}, fmt.Errorf("unknown target language %q", s)
}

func newTarget(tag language.Tag, name string) Target {
	return Target{Tag: tag, Name: name, Native: display.Self.Name(tag)}
}

// minDetectRunes is the shortest text the detector is trusted on.
const minDetectRunes = 20

// Checker detects the language of refined output. The underlying detector
// is expensive to build, so it is created on first use and shared.
type Checker struct {
	once sync.Once
	det  lingua.LanguageDetector
}

// NewChecker returns a Checker; the detector is built lazily.
func NewChecker() *Checker {
	return &Checker{}
}

// Matches reports whether text appears to be written in target. Texts that
// are too short or ambiguous pass. detected is the ISO 639-1 code found,
// or "" when detection was skipped.
func (c *Checker) Matches(text string, target Target) (detected string, ok bool) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDetectRunes {
		return "", true
	}

	c.once.Do(func() {
		c.det = lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build()
	})

	lang, found := c.det.DetectLanguageOf(text)
	if !found {
		return "", true
	}
	detected = strings.ToLower(lang.IsoCode639_1().String())
	return detected, strings.EqualFold(detected, target.Code())
}
