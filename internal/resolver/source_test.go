package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type audit struct {
	CreatedBy string
}

type sundae struct {
	*audit
	Name      string
	Scoops    int `graphql:"scoopCount"`
	Hidden    bool `graphql:"-"`
	unexposed string
}

func (s sundae) Price() float64 { return float64(s.Scoops) * 1.5 }

func (s sundae) Allergens() ([]string, error) {
	if s.Name == "mystery" {
		return nil, errors.New("allergens unknown")
	}
	return []string{"milk"}, nil
}

func (s sundae) Topping(extra bool) string { return "fudge" }

func TestResolveFromSource(t *testing.T) {
	ctx := context.Background()
	s := sundae{audit: &audit{CreatedBy: "marco"}, Name: "hot fudge", Scoops: 2, unexposed: "x"}

	tests := []struct {
		name    string
		source  any
		field   string
		want    any
		wantErr string
	}{
		{name: "map key", source: map[string]any{"name": "mint"}, field: "name", want: "mint"},
		{name: "missing map key", source: map[string]any{}, field: "name", want: nil},
		{name: "typed map", source: map[string]string{"name": "mint"}, field: "name", want: "mint"},
		{name: "nil source", source: nil, field: "name", want: nil},
		{name: "field by name", source: s, field: "name", want: "hot fudge"},
		{name: "field by tag", source: s, field: "scoopCount", want: 2},
		{name: "tag hides name", source: s, field: "scoops", wantErr: `resolver.sundae has no field or method for "scoops"`},
		{name: "promoted field", source: s, field: "createdBy", want: "marco"},
		{name: "nil embedded pointer", source: sundae{Name: "plain"}, field: "createdBy", want: nil},
		{name: "pointer source", source: &s, field: "name", want: "hot fudge"},
		{name: "nil pointer source", source: (*sundae)(nil), field: "name", want: nil},
		{name: "method", source: s, field: "price", want: 3.0},
		{name: "method with error", source: s, field: "allergens", want: []string{"milk"}},
		{name: "method error", source: sundae{Name: "mystery"}, field: "allergens", wantErr: "allergens unknown"},
		{name: "method with arguments", source: s, field: "topping", wantErr: `resolver.sundae has no field or method for "topping"`},
		{name: "unexported", source: s, field: "unexposed", wantErr: `resolver.sundae has no field or method for "unexposed"`},
		{name: "scalar source", source: 42, field: "name", wantErr: `int has no field or method for "name"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFromSource(ctx, tt.source, tt.field)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
