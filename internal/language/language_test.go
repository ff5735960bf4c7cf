package language_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sufal6785/agentbox/internal/language"
)

func TestRegistry_Resolve(t *testing.T) {
	r := language.NewRegistry()

	t.Run("known language", func(t *testing.T) {
		p, err := r.Resolve("python")
		assert.NoError(t, err)
		assert.Equal(t, "python", p.ID)
		assert.Equal(t, "code.py", p.Filename)
		assert.NotEmpty(t, p.Image)
		assert.NotEmpty(t, p.Command)
	})

	t.Run("unknown language", func(t *testing.T) {
		_, err := r.Resolve("brainfuck")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, language.ErrUnsupportedLanguage))
	})
}

func TestRegistry_ProfilesAreComplete(t *testing.T) {
	r := language.NewRegistry()

	profiles := r.List()
	assert.Len(t, profiles, 5)

	for _, p := range profiles {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Filename, "profile %s needs a source filename", p.ID)
		assert.NotEmpty(t, p.Image, "profile %s needs an image", p.ID)
		assert.NotEmpty(t, p.Command, "profile %s needs a command", p.ID)
	}
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := language.NewRegistry()

	profiles := r.List()
	for i := 1; i < len(profiles); i++ {
		assert.Less(t, profiles[i-1].ID, profiles[i].ID)
	}
}

func TestRegistry_CompiledLanguagesUseOneInvocation(t *testing.T) {
	r := language.NewRegistry()

	// Compile and run must happen in a single container command so
	// compile errors surface as a non-zero exit of the same container.
	for _, id := range []string{"cpp", "java", "go"} {
		p, err := r.Resolve(id)
		assert.NoError(t, err)
		assert.Contains(t, []string{"bash", "sh"}, p.Command[0],
			"compiled language %s should run through a shell", id)
		assert.Equal(t, "-c", p.Command[1])
	}
}
