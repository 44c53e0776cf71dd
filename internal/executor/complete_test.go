package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/permgraph/internal/schema"
)

// pluck resolves a field from a map source.
func pluck(key string) MockResolver {
	return func(_ context.Context, src any, _ map[string]any) (any, error) {
		return src.(map[string]any)[key], nil
	}
}

func TestComplete_NonNullPropagation(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("cone", nonNull(named("Cone")))),
		newObjectType("Cone",
			field("flavour", nonNull(str)),
			asyncField("topping", nonNull(str)),
		),
	)

	for _, tc := range []struct {
		name    string
		query   string
		flavour MockResolver
		want    *ExecutionResult
	}{
		{
			name:    "resolver error",
			query:   "{ cone { flavour topping } }",
			flavour: NewMockErrorResolver(errors.New("sold out")),
			want: &ExecutionResult{
				Data:   map[string]any{"cone": nil},
				Errors: []GraphQLError{{Message: "sold out", Path: Path{"cone", "flavour"}}},
			},
		},
		{
			name:    "resolver returns null",
			query:   "{ cone { flavour topping } }",
			flavour: NewMockValueResolver(nil),
			want: &ExecutionResult{
				Data:   map[string]any{"cone": nil},
				Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field cone.flavour", Path: Path{"cone", "flavour"}}},
			},
		},
		{
			name:    "async sibling queued before the failure is dropped",
			query:   "{ cone { topping flavour } }",
			flavour: NewMockValueResolver(nil),
			want: &ExecutionResult{
				Data:   map[string]any{"cone": nil},
				Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field cone.flavour", Path: Path{"cone", "flavour"}}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rt := NewMockRuntime(map[string]MockResolver{
				"Query.cone":   NewMockValueResolver(map[string]any{}),
				"Cone.flavour": tc.flavour,
				"Cone.topping": NewMockValueResolver("sprinkles"),
			})
			requireResult(t, tc.want, execute(t, rt, sch, tc.query))
			requireCalls(t, []Call{
				syncCall("Query", "cone", nil, nil),
				syncCall("Cone", "flavour", map[string]any{}, nil),
			}, rt.GetCalls(), ignoreCallPath)
		})
	}
}

func TestComplete_Lists(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("flavours", listOf(str)),
		field("strictFlavours", listOf(nonNull(str))),
	))

	for _, tc := range []struct {
		name  string
		query string
		value any
		want  *ExecutionResult
	}{
		{"values", "{ flavours }", []any{"VANILLA", "MINT"}, success(map[string]any{"flavours": []any{"VANILLA", "MINT"}})},
		{"typed slice", "{ flavours }", []string{"VANILLA"}, success(map[string]any{"flavours": []any{"VANILLA"}})},
		{"nullable item", "{ flavours }", []any{"VANILLA", nil, "MINT"}, success(map[string]any{"flavours": []any{"VANILLA", nil, "MINT"}})},
		{"null list", "{ flavours }", nil, success(map[string]any{"flavours": nil})},
		{
			"non-null item violation", "{ strictFlavours }", []any{"VANILLA", nil, "MINT"},
			&ExecutionResult{
				Data:   map[string]any{"strictFlavours": nil},
				Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field strictFlavours.[1]", Path: Path{"strictFlavours", 1}}},
			},
		},
		{
			"not a list", "{ flavours }", "VANILLA",
			&ExecutionResult{
				Data:   map[string]any{"flavours": nil},
				Errors: []GraphQLError{{Message: "Expected list value, got string", Path: Path{"flavours"}}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rt := NewMockRuntime(map[string]MockResolver{
				"Query.flavours":       NewMockValueResolver(tc.value),
				"Query.strictFlavours": NewMockValueResolver(tc.value),
			})
			requireResult(t, tc.want, execute(t, rt, sch, tc.query))
		})
	}
}

func TestComplete_LeafSerialization(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("flavour", str), field("grams", num)))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.flavour": NewMockValueResolver("mint"),
		"Query.grams":   NewMockValueResolver("lots"),
	})
	var seen []string
	rt.SetSerializer(func(typeName string, v any) (any, error) {
		seen = append(seen, typeName)
		if typeName == "Int" {
			return nil, errors.New("Int cannot represent lots")
		}
		return v.(string) + "!", nil
	})

	got := execute(t, rt, sch, "{ flavour grams }")
	requireResult(t, &ExecutionResult{
		Data:   map[string]any{"flavour": "mint!", "grams": nil},
		Errors: []GraphQLError{{Message: "Int cannot represent lots", Path: Path{"grams"}}},
	}, got)
	require.Equal(t, []string{"String", "Int"}, seen)
}

func TestComplete_MixedSyncAndAsyncFields(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("cone", named("Cone"))),
		newObjectType("Cone", field("flavour", str), asyncField("topping", str)),
	)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.cone":   NewMockValueResolver(map[string]any{}),
		"Cone.flavour": NewMockValueResolver("VANILLA"),
		"Cone.topping": NewMockValueResolver("sprinkles"),
	})

	got := execute(t, rt, sch, "{ cone { flavour topping } }")
	requireResult(t, success(map[string]any{"cone": map[string]any{"flavour": "VANILLA", "topping": "sprinkles"}}), got)
	requireCalls(t, []Call{
		syncCall("Query", "cone", nil, nil),
		syncCall("Cone", "flavour", map[string]any{}, nil),
		asyncCall(1, "Cone", "topping", map[string]any{}),
	}, rt.GetCalls(), ignoreCallPath)
}

func TestComplete_AbstractTypes(t *testing.T) {
	edible := schema.NewType("Edible", schema.TypeKindInterface, "").AddPossibleType("Cone")
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("special", named("Edible"))),
		edible,
		newObjectType("Cone", field("flavour", str)).AddInterface("Edible"),
	)

	for _, tc := range []struct {
		name      string
		resolve   func(any) (string, error)
		want      *ExecutionResult
		wantCalls []Call
	}{
		{
			name:    "concrete object type",
			resolve: func(any) (string, error) { return "Cone", nil },
			want:    success(map[string]any{"special": map[string]any{"flavour": "MINT"}}),
			wantCalls: []Call{
				syncCall("Query", "special", nil, nil),
				syncCall("Cone", "flavour", map[string]any{"id": 7}, nil),
			},
		},
		{
			name:    "resolver error",
			resolve: func(any) (string, error) { return "", errors.New("melted beyond recognition") },
			want: &ExecutionResult{
				Data:   map[string]any{"special": nil},
				Errors: []GraphQLError{{Message: "melted beyond recognition", Path: Path{"special"}}},
			},
			wantCalls: []Call{syncCall("Query", "special", nil, nil)},
		},
		{
			name:    "name outside the schema",
			resolve: func(any) (string, error) { return "Sundae", nil },
			want: &ExecutionResult{
				Data:   map[string]any{"special": nil},
				Errors: []GraphQLError{{Message: "Abstract type Edible must resolve to an Object type at runtime. Got: Sundae", Path: Path{"special"}}},
			},
			wantCalls: []Call{syncCall("Query", "special", nil, nil)},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rt := NewMockRuntime(map[string]MockResolver{
				"Query.special": NewMockValueResolver(map[string]any{"id": 7}),
				"Cone.flavour":  NewMockValueResolver("MINT"),
			})
			rt.SetTypeResolver(tc.resolve)
			requireResult(t, tc.want, execute(t, rt, sch, "{ special { flavour } }"))
			requireCalls(t, tc.wantCalls, rt.GetCalls(), ignoreCallPath)
		})
	}
}

func TestComplete_UnionWithTypename(t *testing.T) {
	treat := schema.NewType("Treat", schema.TypeKindUnion, "").AddPossibleType("Cone").AddPossibleType("Scoop")
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("treats", listOf(named("Treat")))),
		treat,
		newObjectType("Cone", field("wafer", str)),
		newObjectType("Scoop", field("grams", num)),
	)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.treats": NewMockValueResolver([]any{
			map[string]any{"__typename": "Cone", "wafer": "sugar"},
			map[string]any{"__typename": "Scoop", "grams": 90},
		}),
		"Cone.wafer":  pluck("wafer"),
		"Scoop.grams": pluck("grams"),
	})

	got := execute(t, rt, sch, "{ treats { __typename ... on Cone { wafer } ... on Scoop { grams } } }")
	requireResult(t, success(map[string]any{"treats": []any{
		map[string]any{"__typename": "Cone", "wafer": "sugar"},
		map[string]any{"__typename": "Scoop", "grams": 90},
	}}), got)
}

func TestComplete_ErrorPaths(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("flavour", str), field("cone", named("Cone")), field("cones", listOf(named("Cone")))),
		newObjectType("Cone", field("price", num)),
	)
	price := func(_ context.Context, src any, _ map[string]any) (any, error) {
		if src.(map[string]any)["id"] == 2 {
			return nil, errors.New("no price")
		}
		return 3, nil
	}

	for _, tc := range []struct {
		name  string
		query string
		want  *ExecutionResult
	}{
		{
			"top level", "{ flavour }",
			&ExecutionResult{
				Data:   map[string]any{"flavour": nil},
				Errors: []GraphQLError{{Message: "out of stock", Path: Path{"flavour"}}},
			},
		},
		{
			"nested", "{ cone { price } }",
			&ExecutionResult{
				Data:   map[string]any{"cone": map[string]any{"price": nil}},
				Errors: []GraphQLError{{Message: "no price", Path: Path{"cone", "price"}}},
			},
		},
		{
			"list index", "{ cones { price } }",
			&ExecutionResult{
				Data:   map[string]any{"cones": []any{map[string]any{"price": 3}, map[string]any{"price": nil}}},
				Errors: []GraphQLError{{Message: "no price", Path: Path{"cones", 1, "price"}}},
			},
		},
		{
			"unknown field", "{ flavour sundae }",
			&ExecutionResult{
				Data: map[string]any{"flavour": nil},
				Errors: []GraphQLError{
					{Message: "out of stock", Path: Path{"flavour"}},
					{Message: "Cannot query field 'sundae' on type 'Query'", Path: Path{"sundae"}},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rt := NewMockRuntime(map[string]MockResolver{
				"Query.flavour": NewMockErrorResolver(errors.New("out of stock")),
				"Query.cone":    NewMockValueResolver(map[string]any{"id": 2}),
				"Query.cones":   NewMockValueResolver([]any{map[string]any{"id": 1}, map[string]any{"id": 2}}),
				"Cone.price":    price,
			})
			requireResult(t, tc.want, execute(t, rt, sch, tc.query))
		})
	}
}

// Async Non-Null failures null the nearest nullable position, leaving
// siblings of that position intact.
func TestComplete_AsyncNonNullPropagation(t *testing.T) {
	price := func(_ context.Context, src any, _ map[string]any) (any, error) {
		if src.(map[string]any)["id"] == 2 {
			return nil, errors.New("no price")
		}
		return 3, nil
	}

	t.Run("nullable parent object", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("shop", named("Shop"))),
			newObjectType("Shop", field("name", str), field("cone", named("Cone"))),
			newObjectType("Cone", asyncField("price", nonNull(num))),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.shop": NewMockValueResolver(map[string]any{}),
			"Shop.name":  NewMockValueResolver("Ice Palace"),
			"Shop.cone":  NewMockValueResolver(map[string]any{"id": 2}),
			"Cone.price": price,
		})
		requireResult(t, &ExecutionResult{
			Data:   map[string]any{"shop": map[string]any{"name": "Ice Palace", "cone": nil}},
			Errors: []GraphQLError{{Message: "no price", Path: Path{"shop", "cone", "price"}}},
		}, execute(t, rt, sch, "{ shop { name cone { price } } }"))
	})

	t.Run("nullable list item", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("cones", listOf(named("Cone")))),
			newObjectType("Cone", asyncField("price", nonNull(num))),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.cones": NewMockValueResolver([]any{map[string]any{"id": 1}, map[string]any{"id": 2}}),
			"Cone.price":  price,
		})
		requireResult(t, &ExecutionResult{
			Data:   map[string]any{"cones": []any{map[string]any{"price": 3}, nil}},
			Errors: []GraphQLError{{Message: "no price", Path: Path{"cones", 1, "price"}}},
		}, execute(t, rt, sch, "{ cones { price } }"))
	})

	t.Run("non-null chain up to the root field", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("shop", nonNull(named("Shop"))), field("open", named("Boolean"))),
			newObjectType("Shop", field("cone", nonNull(named("Cone")))),
			newObjectType("Cone", asyncField("price", nonNull(num))),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.shop": NewMockValueResolver(map[string]any{}),
			"Query.open": NewMockValueResolver(true),
			"Shop.cone":  NewMockValueResolver(map[string]any{"id": 2}),
			"Cone.price": price,
		})
		requireResult(t, &ExecutionResult{
			Data:   map[string]any{"shop": nil, "open": true},
			Errors: []GraphQLError{{Message: "no price", Path: Path{"shop", "cone", "price"}}},
		}, execute(t, rt, sch, "{ shop { cone { price } } open }"))
	})

	t.Run("later depths under the nulled position are skipped", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("shop", named("Shop"))),
			newObjectType("Shop", field("cone", named("Cone"))),
			newObjectType("Cone", asyncField("topping", named("Topping")), asyncField("price", nonNull(num))),
			newObjectType("Topping", asyncField("name", str)),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.shop":   NewMockValueResolver(map[string]any{}),
			"Shop.cone":    NewMockValueResolver(map[string]any{"id": 2}),
			"Cone.topping": NewMockValueResolver(map[string]any{}),
			"Cone.price":   price,
			"Topping.name": NewMockValueResolver("fudge"),
		})
		requireResult(t, &ExecutionResult{
			Data:   map[string]any{"shop": map[string]any{"cone": nil}},
			Errors: []GraphQLError{{Message: "no price", Path: Path{"shop", "cone", "price"}}},
		}, execute(t, rt, sch, "{ shop { cone { topping { name } price } } }"))
		requireCalls(t, []Call{
			{Kind: CallKindSync, ObjectType: "Query", Field: "shop", Path: "shop", Args: map[string]any{}},
			{Kind: CallKindSync, ObjectType: "Shop", Field: "cone", Path: "shop.cone", Source: map[string]any{}, Args: map[string]any{}},
			{Kind: CallKindAsync, ObjectType: "Cone", Field: "topping", Path: "shop.cone.topping", Source: map[string]any{"id": 2}, Args: map[string]any{}, BatchID: 1},
			{Kind: CallKindAsync, ObjectType: "Cone", Field: "price", Path: "shop.cone.price", Source: map[string]any{"id": 2}, Args: map[string]any{}, BatchID: 1},
		}, rt.GetCalls())
	})
}
