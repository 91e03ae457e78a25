package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sleight/internal/misuse"
)

func TestSettingsBuilder_Build(t *testing.T) {
	s := NewSettingsBuilder().
		Name("userService").
		DefaultAnswer("default").
		Build()

	assert.Equal(t, "userService", s.MockName())
	assert.Equal(t, "default", s.DefaultAnswer())
}

func TestSettingsBuilder_BuildFreezes(t *testing.T) {
	b := NewSettingsBuilder().Name("first")
	s := b.Build()

	b.Name("second")

	assert.Equal(t, "first", s.MockName(), "built settings are independent of the builder")
}

func TestSettingsBuilder_EmptyDefaults(t *testing.T) {
	s := NewSettingsBuilder().Build()

	assert.Equal(t, "", s.MockName())
	assert.Nil(t, s.DefaultAnswer())
}

// foreignSettings satisfies the Settings interface but did not come from the
// builder.
type foreignSettings struct{}

func (foreignSettings) MockName() string   { return "foreign" }
func (foreignSettings) DefaultAnswer() any { return nil }

func TestRegister_RejectsForeignSettings(t *testing.T) {
	r := New(nil)

	_, err := r.Register(foreignSettings{}, nil)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnsupportedSettings))

	var me *misuse.Error
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.TypeName, "foreignSettings", "error names the offending implementation")
}

func TestRegister_NilSettingsAccepted(t *testing.T) {
	r := New(nil)

	entry, err := r.Register(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", entry.Settings().MockName())
	assert.Nil(t, entry.Settings().DefaultAnswer())
}
