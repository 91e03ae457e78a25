package registry

import (
	"fmt"

	"github.com/roach88/sleight/internal/misuse"
)

// Settings is the immutable mock construction configuration.
//
// Implementations other than the one produced by NewSettingsBuilder are
// rejected at registration time: the engine depends on the builder having
// validated and frozen the settings, so it cannot accept foreign
// implementations of this interface.
type Settings interface {
	// MockName is the display name for the mock, used in diagnostics context.
	MockName() string

	// DefaultAnswer is the answer returned for calls with no stub bound,
	// opaque to the engine. Nil means "no default".
	DefaultAnswer() any
}

// creationSettings is the sanctioned Settings implementation.
// Immutable once built.
type creationSettings struct {
	name          string
	defaultAnswer any
}

func (s *creationSettings) MockName() string   { return s.name }
func (s *creationSettings) DefaultAnswer() any { return s.defaultAnswer }

// SettingsBuilder assembles mock construction settings.
// Build produces the only Settings implementation the registry accepts.
type SettingsBuilder struct {
	settings creationSettings
}

// NewSettingsBuilder creates a builder with empty defaults.
func NewSettingsBuilder() *SettingsBuilder {
	return &SettingsBuilder{}
}

// Name sets the mock's display name.
func (b *SettingsBuilder) Name(name string) *SettingsBuilder {
	b.settings.name = name
	return b
}

// DefaultAnswer sets the answer for calls with no stub bound.
func (b *SettingsBuilder) DefaultAnswer(answer any) *SettingsBuilder {
	b.settings.defaultAnswer = answer
	return b
}

// Build freezes and returns the settings.
// The returned value is independent of the builder: further builder calls
// do not affect it.
func (b *SettingsBuilder) Build() Settings {
	frozen := b.settings
	return &frozen
}

// confirm validates that s came from the sanctioned builder.
// A nil s is accepted and replaced with empty defaults.
func confirm(s Settings) (*creationSettings, error) {
	if s == nil {
		return &creationSettings{}, nil
	}
	impl, ok := s.(*creationSettings)
	if !ok {
		return nil, misuse.UnsupportedSettings(fmt.Sprintf("%T", s))
	}
	return impl, nil
}
