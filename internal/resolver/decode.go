package resolver

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeArgs copies coerced arguments into out, a pointer to a struct whose
// fields are matched by their `graphql` tag or, failing that, by name.
// Nested input objects decode into nested structs.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "graphql",
		Result:           out,
		WeaklyTypedInput: false,
		ErrorUnused:      true,
		Squash:           true,
	})
	if err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
