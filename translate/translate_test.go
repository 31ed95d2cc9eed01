package translate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/propkit/lockfile"
	"github.com/minios-linux/propkit/propfile"
)

const source = `# Greetings
greeting=Hello
farewell=Goodbye

multi=First line \
    second line
`

// fakeTranslator prefixes every text with "<to>:".
type fakeTranslator struct {
	calls [][]string
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, texts []string, _, to string) ([]string, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = to + ":" + t
	}
	return out, nil
}

type singleFake struct{ fakeTranslator }

func (s *singleFake) BatchSize() int { return 1 }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func setup(t *testing.T) (dir, input string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "messages.properties")
	writeFile(t, input, source)
	return dir, input
}

// ---------------------------------------------------------------------------
// TranslateFile
// ---------------------------------------------------------------------------

func TestTranslateFile(t *testing.T) {
	dir, input := setup(t)
	fake := &fakeTranslator{}

	res, err := TranslateFile(context.Background(), Options{
		Input: input, From: "en", To: "de", Translator: fake,
	})
	require.NoError(t, err)

	out := filepath.Join(dir, "messages_de.properties")
	assert.Equal(t, out, res.Output)
	assert.True(t, res.Written)
	assert.Equal(t, []string{"greeting", "farewell", "multi"}, res.Translated)

	// One batched request, raw values.
	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"Hello", "Goodbye", "First line \\\n    second line"}, fake.calls[0])

	assert.Equal(t, `# Greetings
greeting=de:Hello
farewell=de:Goodbye

multi=de:First line \
    second line
`, readFile(t, out))

	lf, err := lockfile.Load(dir)
	require.NoError(t, err)
	targets, keys := lf.Stats()
	assert.Equal(t, 1, targets)
	assert.Equal(t, 3, keys)
	assert.True(t, lf.Has("messages_de.properties", "multi"))
}

func TestTranslateFileRemoveBackslashes(t *testing.T) {
	dir, input := setup(t)
	fake := &fakeTranslator{}
	out := filepath.Join(dir, "custom.properties")

	_, err := TranslateFile(context.Background(), Options{
		Input: input, Output: out, From: "en", To: "fr", RemoveBackslashes: true, Translator: fake,
	})
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, "First line second line", fake.calls[0][2])
	assert.Contains(t, readFile(t, out), "multi=fr:First line second line\n")
}

func TestTranslateFileMissingInput(t *testing.T) {
	fake := &fakeTranslator{}
	_, err := TranslateFile(context.Background(), Options{
		Input: filepath.Join(t.TempDir(), "nope.properties"), To: "de", Translator: fake,
	})

	var nf *propfile.FileNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, fake.calls)
}

func TestTranslateFileErrorWritesNothing(t *testing.T) {
	dir, input := setup(t)
	fake := &fakeTranslator{err: errors.New("boom")}

	_, err := TranslateFile(context.Background(), Options{Input: input, To: "de", Translator: fake})
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "messages_de.properties"))
	assert.NoFileExists(t, filepath.Join(dir, lockfile.LockFileName))
}

func TestTranslateFileBatchedProgress(t *testing.T) {
	_, input := setup(t)
	fake := &singleFake{}
	var progress [][2]int

	_, err := TranslateFile(context.Background(), Options{
		Input: input, To: "de", Translator: fake,
		OnProgress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})
	require.NoError(t, err)

	assert.Len(t, fake.calls, 3)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

// ---------------------------------------------------------------------------
// TranslateMissing
// ---------------------------------------------------------------------------

func TestTranslateMissingAppends(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")
	writeFile(t, out, "greeting=Hallo")
	fake := &fakeTranslator{}

	res, err := TranslateMissing(context.Background(), Options{
		Input: input, From: "en", To: "de", Translator: fake,
	})
	require.NoError(t, err)

	assert.True(t, res.Written)
	assert.Equal(t, []string{"farewell", "multi"}, res.Missing)
	assert.Empty(t, res.Changed)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"Goodbye", "First line \\\n    second line"}, fake.calls[0])

	assert.Equal(t, `greeting=Hallo
farewell=de:Goodbye
multi=de:First line \
    second line
`, readFile(t, out))
}

func TestTranslateMissingAppendKeepsExistingBytes(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")
	existing := "\ufeff# Deutsch\r\ngreeting=Hallo\r\n"
	writeFile(t, out, existing)

	res, err := TranslateMissing(context.Background(), Options{Input: input, To: "de", Translator: &fakeTranslator{}})
	require.NoError(t, err)
	require.True(t, res.Written)

	got := readFile(t, out)
	assert.True(t, strings.HasPrefix(got, existing), "existing content was rewritten: %q", got)
	assert.Equal(t, existing+"farewell=de:Goodbye\nmulti=de:First line \\\n    second line\n", got)
}

func TestTranslateMissingSorted(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")
	writeFile(t, out, "farewell=Tschüss\ngreeting=Hallo\nobsolete=weg\n")

	res, err := TranslateMissing(context.Background(), Options{
		Input: input, To: "de", Sort: true, RemoveBackslashes: true, Translator: &fakeTranslator{},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"multi"}, res.Missing)
	assert.Equal(t, `# Greetings
greeting=Hallo
farewell=Tschüss

multi=de:First line second line
`, readFile(t, out))
}

func TestTranslateMissingNothingToDo(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")
	content := "greeting=Hallo\nfarewell=Tschüss\nmulti=Erste Zeile\n"
	writeFile(t, out, content)
	fake := &fakeTranslator{}

	res, err := TranslateMissing(context.Background(), Options{Input: input, To: "de", Translator: fake})
	require.NoError(t, err)

	assert.False(t, res.Written)
	assert.Empty(t, res.Translated)
	assert.Empty(t, fake.calls)
	assert.Equal(t, content, readFile(t, out))
	assert.NoFileExists(t, filepath.Join(dir, lockfile.LockFileName))
}

func TestTranslateMissingFileNotFound(t *testing.T) {
	dir, input := setup(t)

	t.Run("input", func(t *testing.T) {
		_, err := TranslateMissing(context.Background(), Options{
			Input: filepath.Join(dir, "absent.properties"), To: "de", Translator: &fakeTranslator{},
		})
		var nf *propfile.FileNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, filepath.Join(dir, "absent.properties"), nf.Path)
	})

	t.Run("output", func(t *testing.T) {
		_, err := TranslateMissing(context.Background(), Options{Input: input, To: "de", Translator: &fakeTranslator{}})
		var nf *propfile.FileNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, filepath.Join(dir, "messages_de.properties"), nf.Path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestTranslateMissingDuplicateOutput(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")
	content := "greeting=Hallo\ngreeting=Servus\n"
	writeFile(t, out, content)
	fake := &fakeTranslator{}

	_, err := TranslateMissing(context.Background(), Options{Input: input, To: "de", Translator: fake})

	var dup *propfile.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"greeting"}, dup.Keys)
	assert.Empty(t, fake.calls)
	assert.Equal(t, content, readFile(t, out))
}

func TestTranslateMissingTranslatorError(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")
	writeFile(t, out, "greeting=Hallo\n")

	_, err := TranslateMissing(context.Background(), Options{
		Input: input, To: "de", Translator: &fakeTranslator{err: &APIError{StatusCode: 403, Body: "quota"}},
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "greeting=Hallo\n", readFile(t, out))
}

func TestTranslateMissingChanged(t *testing.T) {
	dir, input := setup(t)
	out := filepath.Join(dir, "messages_de.properties")

	_, err := TranslateFile(context.Background(), Options{Input: input, To: "de", Translator: &fakeTranslator{}})
	require.NoError(t, err)

	writeFile(t, input, `# Greetings
greeting=Hello there
farewell=Goodbye

multi=First line \
      second line
`)

	// Without --changed the edited source is not noticed.
	res, err := TranslateMissing(context.Background(), Options{Input: input, To: "de", Translator: &fakeTranslator{}})
	require.NoError(t, err)
	assert.False(t, res.Written)

	fake := &fakeTranslator{}
	res, err = TranslateMissing(context.Background(), Options{
		Input: input, To: "de", Changed: true, Translator: fake,
	})
	require.NoError(t, err)

	// Re-indenting the continuation is not a change.
	assert.Equal(t, []string{"greeting"}, res.Changed)
	assert.Empty(t, res.Missing)
	assert.Equal(t, [][]string{{"Hello there"}}, fake.calls)
	assert.Equal(t, `# Greetings
greeting=de:Hello there
farewell=de:Goodbye

multi=de:First line \
    second line
`, readFile(t, out))

	// The lock file now matches the source again.
	res, err = TranslateMissing(context.Background(), Options{
		Input: input, To: "de", Changed: true, Translator: &fakeTranslator{},
	})
	require.NoError(t, err)
	assert.False(t, res.Written)
}

func TestSplitStrings(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, splitStrings(items, 2))
	assert.Equal(t, [][]string{items}, splitStrings(items, 0))
	assert.Nil(t, splitStrings(nil, 3))
}
