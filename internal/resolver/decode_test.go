package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type scoopArgs struct {
	Flavour any `graphql:"flavour"`
	Grams   int
	Order   struct {
		Cone   bool `graphql:"cone"`
		Extras []string
	} `graphql:"order"`
}

func TestDecodeArgs(t *testing.T) {
	var got scoopArgs
	err := DecodeArgs(map[string]any{
		"flavour": 0,
		"grams":   120,
		"order":   map[string]any{"cone": true, "extras": []any{"sprinkles"}},
	}, &got)
	require.NoError(t, err)
	require.Equal(t, 0, got.Flavour)
	require.Equal(t, 120, got.Grams)
	require.True(t, got.Order.Cone)
	require.Equal(t, []string{"sprinkles"}, got.Order.Extras)
}

func TestDecodeArgs_Rejects(t *testing.T) {
	var got scoopArgs
	err := DecodeArgs(map[string]any{"flavour": "", "spoon": true}, &got)
	require.ErrorContains(t, err, "decode args:")
	require.ErrorContains(t, err, "spoon")

	err = DecodeArgs(map[string]any{"grams": "heavy"}, &got)
	require.ErrorContains(t, err, "Grams")

	err = DecodeArgs(map[string]any{}, got)
	require.ErrorContains(t, err, "decode args:")
}
