package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/workers"
)

func testPool() *workers.Pool {
	return workers.NewPool(workers.DefaultPoolConfig("corpus-test", 2))
}

func TestTokenizer_Tokenize(t *testing.T) {
	tests := []struct {
		name string
		opts []TokenizerOption
		text string
		want []string
	}{
		{
			name: "drops stop words and punctuation",
			text: "The cat sat on the mat.",
			want: []string{"cat", "sat", "mat"},
		},
		{
			name: "drops numbers and short tokens",
			text: "x 42 apples 7 b",
			want: []string{"apples"},
		},
		{
			name: "folds accents and case",
			text: "Café CAFÉ",
			want: []string{"cafe", "cafe"},
		},
		{
			name: "stems when enabled",
			opts: []TokenizerOption{WithStemming(true)},
			text: "running dogs",
			want: []string{"run", "dog"},
		},
		{
			name: "extra stop words",
			opts: []TokenizerOption{WithStopWords("Cat")},
			text: "cat hat",
			want: []string{"hat"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTokenizer(tt.opts...).Tokenize(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadRawDocuments(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"a","text":"hello world","metadata":{"label":"x"}}`,
		``,
		`{"text":"no id here","metadata":{"stars":4}}`,
	}, "\n")

	docs, err := ReadRawDocuments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "hello world", docs[0].Text)
	assert.Equal(t, "x", docs[0].Metadata["label"])
	assert.Equal(t, "3", docs[1].ID)
}

func TestReadRawDocuments_Errors(t *testing.T) {
	_, err := ReadRawDocuments(strings.NewReader(`{"id":"a"}` + "\n" + `not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ReadRawDocuments(strings.NewReader(`{"id":"a"}` + "\n" + `{"id":"a"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate document id")
}

func TestBuild(t *testing.T) {
	raws := []RawDocument{
		{ID: "d0", Text: "apple banana apple", Metadata: map[string]interface{}{"label": "fruit"}},
		{ID: "d1", Text: "banana cherry", Metadata: map[string]interface{}{"label": "fruit", "stars": 5.0}},
		{ID: "d2", Text: "engine wheel", Metadata: map[string]interface{}{"label": nil}},
		{ID: "d3", Text: "engine banana"},
	}

	c, err := Build(context.Background(), "tiny", raws, Options{MinDocFreq: 2}, testPool())
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "tiny", c.Name)
	assert.Equal(t, []string{"banana", "engine"}, c.Vocabulary.Words())
	require.Equal(t, 4, c.Len())

	assert.Equal(t, []models.TokenCount{{Index: 0, Count: 1}}, c.Doc(0).Tokens)
	assert.Equal(t, []models.TokenCount{{Index: 1, Count: 1}}, c.Doc(2).Tokens)
	assert.Equal(t, []models.TokenCount{{Index: 0, Count: 1}, {Index: 1, Count: 1}}, c.Doc(3).Tokens)

	label, ok := c.Doc(1).Label("label")
	assert.True(t, ok)
	assert.Equal(t, "fruit", label)
	assert.Equal(t, "5", c.Doc(1).Metadata["stars"])

	_, ok = c.Doc(2).Label("label")
	assert.False(t, ok)
}

func TestBuild_MinDocFreqDefaultsToOne(t *testing.T) {
	raws := []RawDocument{{ID: "only", Text: "zebra apple"}}

	c, err := Build(context.Background(), "one", raws, Options{}, testPool())
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "zebra"}, c.Vocabulary.Words())
	assert.Equal(t, 2, c.Doc(0).Length())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.jsonl")
	content := `{"id":"1","text":"red green","metadata":{"label":"a"}}` + "\n" +
		`{"id":"2","text":"green blue","metadata":{"label":"b"}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadFile(context.Background(), "tiny", path, Options{MinDocFreq: 1}, testPool())
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "green", "red"}, c.Vocabulary.Words())
	assert.Equal(t, 2, c.Len())

	_, err = LoadFile(context.Background(), "missing", filepath.Join(dir, "nope.jsonl"), Options{}, testPool())
	assert.True(t, os.IsNotExist(err))
}

func TestTrainTestSplit(t *testing.T) {
	c := &models.Corpus{Name: "ten", Vocabulary: models.MustVocabulary("w")}
	for i := 0; i < 10; i++ {
		c.Documents = append(c.Documents, models.Document{ID: string(rune('a' + i))})
	}

	split, err := TrainTestSplit(c, 6, 3, 42)
	require.NoError(t, err)
	assert.Len(t, split.Train, 6)
	assert.Len(t, split.Test, 3)
	assert.IsIncreasing(t, split.Train)
	assert.IsIncreasing(t, split.Test)

	train := split.TrainSet()
	for _, id := range split.Test {
		assert.False(t, train[id], "test id %d also in train", id)
	}

	again, err := TrainTestSplit(c, 6, 3, 42)
	require.NoError(t, err)
	assert.Equal(t, split, again)

	_, err = TrainTestSplit(c, 8, 3, 42)
	assert.Error(t, err)

	_, err = TrainTestSplit(c, -1, 3, 42)
	assert.Error(t, err)
}
