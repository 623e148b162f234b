package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabulary(t *testing.T) {
	v, err := NewVocabulary([]string{"apple", "banana", "cherry"})
	require.NoError(t, err)

	assert.Equal(t, 3, v.Size())
	i, ok := v.Index("banana")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = v.Index("durian")
	assert.False(t, ok)
	assert.Equal(t, "cherry", v.Word(2))

	words := v.Words()
	words[0] = "mutated"
	assert.Equal(t, "apple", v.Word(0), "Words returns a copy")

	_, err = NewVocabulary([]string{"a", "b", "a"})
	assert.Error(t, err)
	assert.Panics(t, func() { MustVocabulary("x", "x") })
}

func TestNewDocument(t *testing.T) {
	d := NewDocument("d1", map[int]int{4: 1, 0: 3, 2: 0}, map[string]string{"label": "pos"})

	assert.Equal(t, []TokenCount{{Index: 0, Count: 3}, {Index: 4, Count: 1}}, d.Tokens)
	assert.Equal(t, 4, d.Length())
	assert.NoError(t, d.Validate(5))

	label, ok := d.Label("label")
	assert.True(t, ok)
	assert.Equal(t, "pos", label)
	_, ok = d.Label("missing")
	assert.False(t, ok)
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name  string
		doc   Document
		field string
	}{
		{"missing id", Document{Tokens: []TokenCount{{0, 1}}}, "id"},
		{"index out of range", Document{ID: "x", Tokens: []TokenCount{{5, 1}}}, "tokens"},
		{"unsorted", Document{ID: "x", Tokens: []TokenCount{{2, 1}, {1, 1}}}, "tokens"},
		{"zero count", Document{ID: "x", Tokens: []TokenCount{{1, 0}}}, "tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate(3)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestMetadataString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
		ok   bool
	}{
		{"positive", "positive", true},
		{true, "true", true},
		{float64(4), "4", true},
		{2.5, "2.5", true},
		{7, "7", true},
		{nil, "", false},
		{[]interface{}{"a"}, "[a]", true},
	}

	for _, tt := range tests {
		got, ok := MetadataString(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestCorpus(t *testing.T) {
	c := &Corpus{
		Name:       "test",
		Vocabulary: MustVocabulary("a", "b", "c"),
		Documents: []Document{
			NewDocument("0", map[int]int{0: 1, 1: 2}, nil),
			NewDocument("1", map[int]int{1: 1}, nil),
			NewDocument("2", map[int]int{2: 4}, nil),
		},
	}

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "1", c.Doc(1).ID)
	assert.Equal(t, []int{1, 2, 1}, c.DocumentFrequency(nil))
	assert.Equal(t, []int{0, 1, 1}, c.DocumentFrequency([]int{1, 2}))

	subset := c.Subset([]int{2, 0})
	require.Len(t, subset, 2)
	assert.Equal(t, "2", subset[0].ID)
	assert.Same(t, c.Doc(0), subset[1])

	assert.NoError(t, c.Validate())
	c.Documents[1].Tokens = []TokenCount{{Index: 9, Count: 1}}
	assert.Error(t, c.Validate())
	assert.Error(t, (&Corpus{}).Validate())
}

func TestTopicsResponse_NullAccuracy(t *testing.T) {
	raw, err := json.Marshal(TopicsResponse{Anchors: [][]string{{"a"}}, Topics: [][]string{{"a"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"anchors":[["a"]],"topics":[["a"]],"accuracy":null}`, string(raw))
}
