package lexica

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosedClassification(t *testing.T) {
	tests := []struct {
		typ    Type
		closed bool
	}{
		{TypeNoun, false},
		{TypeVerb, false},
		{TypeAdjective, false},
		{TypeAdverb, false},
		{TypeArticle, true},
		{TypeConjunction, true},
		{TypePronoun, true},
		{TypeProperNoun, true},
		{TypeNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.closed, tt.typ.Closed())
		})
	}
}

// Every declared category must have a name and an explicit classification;
// a new constant that misses the tables shows up here.
func TestTypeTablesAreExhaustive(t *testing.T) {
	assert.Len(t, typeNames, len(AllTypes))
	for _, typ := range AllTypes {
		_, ok := typeNames[typ]
		assert.True(t, ok, "missing name for %d", int(typ))
	}
	for _, typ := range OpenTypes {
		assert.False(t, typ.Closed())
	}
}

func TestUnknownEnumValuesFallBack(t *testing.T) {
	unknown := Type(99)
	assert.Equal(t, "Type(99)", unknown.String())
	assert.True(t, unknown.Closed(), "unknown categories must never be harvested")
	assert.Equal(t, "Role(42)", Role(42).String())
	assert.Equal(t, ".", SentenceType(42).Punctuation())

	_, err := unknown.MarshalText()
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("propernoun")
	require.NoError(t, err)
	assert.Equal(t, TypeProperNoun, typ)

	_, err = ParseType("gerund")
	assert.Error(t, err)
}

func TestTypeJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(struct{ T Type }{TypeAdverb})
	require.NoError(t, err)
	assert.JSONEq(t, `{"T":"Adverb"}`, string(raw))

	var out struct{ T Type }
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, TypeAdverb, out.T)
}

func TestPunctuation(t *testing.T) {
	tests := map[SentenceType]string{
		SentenceNone:                ".",
		SentenceStatement:           ".",
		SentenceQuestion:            "?",
		SentenceExclamation:         "!",
		SentenceExclamatoryQuestion: "?!",
		SentencePartial:             ";",
	}
	for st, want := range tests {
		assert.Equal(t, want, st.Punctuation())
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := DefaultContext("en")
	assert.Equal(t, SecondPerson, ctx.Perspective)
	assert.Equal(t, NormalizeNone, ctx.Normalization)

	shifted := ctx.WithDeltas(1, -2, 3)
	assert.Equal(t, 0, ctx.Severity)
	assert.Equal(t, 1, shifted.Severity)
	assert.Equal(t, -2, shifted.Elegance)

	ctx.Verbosity = 140
	assert.Equal(t, 100, ctx.ClampedVerbosity())
	ctx.Verbosity = -3
	assert.Equal(t, 0, ctx.ClampedVerbosity())
}
