package interact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeKeysPlainText(t *testing.T) {
	strokes, err := DecodeKeys("ab")
	require.NoError(t, err)
	require.Equal(t, []KeyStroke{{Key: "a"}, {Key: "b"}}, strokes)
}

func TestDecodeKeysModifierSequence(t *testing.T) {
	strokes, err := DecodeKeys("<Ctrl+A>")
	require.NoError(t, err)
	require.Equal(t, []KeyStroke{{Key: "A", Modifiers: []string{"Ctrl"}}}, strokes)
}

func TestDecodeKeysNamedKey(t *testing.T) {
	strokes, err := DecodeKeys("<Tab>")
	require.NoError(t, err)
	require.Equal(t, []KeyStroke{{Key: "Tab"}}, strokes)
}

func TestDecodeKeysUnterminatedBracketIsLiteral(t *testing.T) {
	strokes, err := DecodeKeys("<abc")
	require.NoError(t, err)
	require.Equal(t, "<", strokes[0].Key)
}
