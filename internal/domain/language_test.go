package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBuffer(t *testing.T) {
	t.Parallel()
	py, ok := Template("python")
	assert.True(t, ok)

	cases := []struct {
		name      string
		lang      string
		persisted string
		found     bool
		want      string
	}{
		{"persisted text wins", "python", "print(2)", true, "print(2)"},
		{"persisted empty still wins", "python", "", true, ""},
		{"template when never saved", "python", "", false, py},
		{"unknown language is empty", "cobol", "", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveBuffer(tc.lang, tc.persisted, tc.found))
		})
	}
}

func TestTemplatesCoverEditorLanguages(t *testing.T) {
	t.Parallel()
	for _, lang := range []string{"javascript", "typescript", "python", "html", "css", "json", "sql", "java", "cpp", "markdown"} {
		tpl, ok := Template(lang)
		assert.True(t, ok, lang)
		assert.NotEmpty(t, tpl, lang)
	}
	_, ok := Template(DefaultLanguage)
	assert.True(t, ok)
}

func TestFieldTakenError(t *testing.T) {
	t.Parallel()
	err := &FieldTakenError{Field: "email"}
	assert.Equal(t, "email already taken", err.Error())
	assert.ErrorIs(t, err, ErrUserExists)
}
