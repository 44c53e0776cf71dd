package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	executor "github.com/hanpama/permgraph/internal/executor"
	log "github.com/hanpama/permgraph/internal/log"
	permission "github.com/hanpama/permgraph/internal/permission"
)

func TestResolve_FalsyEnumArgumentsAndResults(t *testing.T) {
	var received []any
	reg := NewRegistry().Enum(flavourEnum).Query(&Field{
		Name: "pick",
		Type: nonNull(named("IceCreamFlavour")),
		Args: []Argument{{Name: "flavour", Type: nonNull(named("IceCreamFlavour"))}},
		Resolve: func(_ context.Context, _ any, args map[string]any) (any, error) {
			received = append(received, args["flavour"])
			return args["flavour"], nil
		},
	})
	b := mustBuild(t, reg)

	got := run(t, b, `{ a: pick(flavour: VANILLA) b: pick(flavour: STRAWBERRY) c: pick(flavour: CHOCOLATE) }`, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"a": "VANILLA", "b": "STRAWBERRY", "c": "CHOCOLATE"},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []any{"", 0, "chocolate"}, received)
}

func TestResolve_EnumListArguments(t *testing.T) {
	var received any
	reg := NewRegistry().Enum(flavourEnum).Query(&Field{
		Name: "many",
		Type: list(named("IceCreamFlavour")),
		Args: []Argument{{Name: "flavours", Type: list(named("IceCreamFlavour"))}},
		Resolve: func(_ context.Context, _ any, args map[string]any) (any, error) {
			received = args["flavours"]
			return args["flavours"], nil
		},
	})
	b := mustBuild(t, reg)

	got := run(t, b, `{ many(flavours: [STRAWBERRY, null, VANILLA, STRAWBERRY]) }`, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"many": []any{"STRAWBERRY", nil, "VANILLA", "STRAWBERRY"}},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []any{0, nil, "", 0}, received)
}

func TestResolve_InputObjectEnumDefaults(t *testing.T) {
	var received map[string]any
	reg := NewRegistry().
		Enum(flavourEnum).
		Input(&Input{Name: "ScoopInput", Fields: []Argument{
			{Name: "flavour", Type: named("IceCreamFlavour"), Default: "VANILLA"},
			{Name: "topping", Type: named("IceCreamFlavour")},
			{Name: "grams", Type: named("Int"), Default: 100},
		}}).
		Query(&Field{
			Name: "order",
			Type: named("Boolean"),
			Args: []Argument{{Name: "scoop", Type: nonNull(named("ScoopInput"))}},
			Resolve: func(_ context.Context, _ any, args map[string]any) (any, error) {
				received = args["scoop"].(map[string]any)
				return true, nil
			},
		})
	b := mustBuild(t, reg)

	got := run(t, b, `{ order(scoop: {}) }`, nil)
	require.Empty(t, got.Errors)
	require.Equal(t, map[string]any{"flavour": "", "grams": 100}, received)

	got = run(t, b, `query($s: ScoopInput!) { order(scoop: $s) }`, map[string]any{
		"s": map[string]any{"flavour": "STRAWBERRY", "topping": "CHOCOLATE"},
	})
	require.Empty(t, got.Errors)
	require.Equal(t, map[string]any{"flavour": 0, "topping": "chocolate", "grams": 100}, received)
}

func TestResolve_ShortCircuitsOnFirstDenial(t *testing.T) {
	var invoked, checkedA, checkedB, checkedC int32
	counting := func(n *int32, answer bool, message string) permission.Check {
		return permission.New(message, func(context.Context, any, map[string]any) (bool, error) {
			atomic.AddInt32(n, 1)
			return answer, nil
		})
	}
	reg := NewRegistry().Query(
		&Field{
			Name: "secret",
			Type: named("String"),
			Permissions: []permission.Check{
				counting(&checkedA, true, "A says no"),
				counting(&checkedB, false, "B says no"),
				counting(&checkedC, false, "C says no"),
			},
			Resolve: func(context.Context, any, map[string]any) (any, error) {
				atomic.AddInt32(&invoked, 1)
				return "top secret", nil
			},
		},
		&Field{Name: "other", Type: named("String"), Resolve: value("ok")},
	)
	b := mustBuild(t, reg)

	got := run(t, b, `{ secret other }`, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"secret": nil, "other": "ok"},
		Errors: []executor.GraphQLError{forbidden("B says no", "secret")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.EqualValues(t, 0, invoked)
	require.EqualValues(t, 1, checkedA)
	require.EqualValues(t, 1, checkedB)
	require.EqualValues(t, 0, checkedC)
}

func TestResolve_MissingImplementation(t *testing.T) {
	reg := NewRegistry().Query(&Field{
		Name:        "user",
		Type:        named("String"),
		Args:        []Argument{{Name: "id", Type: named("ID")}},
		Permissions: []permission.Check{isAuthenticated{permission.Base{Reason: "User is not authenticated"}}},
		Resolve:     value("patrick"),
	})
	b := mustBuild(t, reg)

	for _, q := range []string{`{ user }`, `{ user(id: 1) }`, `{ user(id: "abc") }`} {
		got := run(t, b, q, nil)
		want := &executor.ExecutionResult{
			Data:   map[string]any{"user": nil},
			Errors: []executor.GraphQLError{forbidden(permission.MissingImplementationMessage, "user")},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s: ExecutionResult mismatch (-want +got):\n%s", q, diff)
		}
	}
}

func TestResolve_NilListIsNull(t *testing.T) {
	reg := NewRegistry().Enum(flavourEnum).Query(
		&Field{Name: "untyped", Type: list(nonNull(named("IceCreamFlavour"))), Resolve: value(nil)},
		&Field{Name: "typed", Type: list(named("IceCreamFlavour")), Resolve: value([]int(nil))},
	)
	b := mustBuild(t, reg)

	got := run(t, b, `{ untyped typed }`, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"untyped": nil, "typed": nil},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_DeniedAsyncFieldIsNeverScheduled(t *testing.T) {
	var scheduled int32
	reg := NewRegistry().Query(
		&Field{
			Name:        "slow",
			Type:        named("String"),
			Async:       true,
			Permissions: []permission.Check{denyAll("You are not allowed")},
			Resolve: func(context.Context, any, map[string]any) (any, error) {
				atomic.AddInt32(&scheduled, 1)
				return "slow", nil
			},
		},
		&Field{Name: "fast", Type: named("String"), Async: true, Resolve: value("fast")},
		&Field{Name: "plain", Type: named("String"), Resolve: value("plain")},
	)
	b := mustBuild(t, reg)

	got := run(t, b, `{ slow fast plain }`, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"slow": nil, "fast": "fast", "plain": "plain"},
		Errors: []executor.GraphQLError{forbidden("You are not allowed", "slow")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.EqualValues(t, 0, scheduled)
}

type user struct {
	Name  string
	Email string
}

func TestResolve_NestedFieldDeniedFromSource(t *testing.T) {
	canSeeEmail := permission.New("Cannot see email for this user", func(_ context.Context, source any, args map[string]any) (bool, error) {
		secure, _ := args["secure"].(bool)
		return source.(*user).Name == "patrick" && secure, nil
	})
	reg := NewRegistry().
		Object(&Object{Name: "User", Fields: []*Field{
			{Name: "name", Type: nonNull(named("String"))},
			{
				Name:        "email",
				Type:        named("String"),
				Args:        []Argument{{Name: "secure", Type: named("Boolean"), Default: true}},
				Permissions: []permission.Check{canSeeEmail},
			},
		}}).
		Query(&Field{
			Name: "user",
			Type: named("User"),
			Args: []Argument{{Name: "name", Type: nonNull(named("String"))}},
			Resolve: func(_ context.Context, _ any, args map[string]any) (any, error) {
				name := args["name"].(string)
				return &user{Name: name, Email: name + "@example.com"}, nil
			},
		})
	b := mustBuild(t, reg)

	got := run(t, b, `{ user(name: "marco") { name email } }`, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"user": map[string]any{"name": "marco", "email": nil}},
		Errors: []executor.GraphQLError{forbidden("Cannot see email for this user", "user", "email")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	got = run(t, b, `{ user(name: "patrick") { name email } }`, nil)
	want = &executor.ExecutionResult{
		Data:   map[string]any{"user": map[string]any{"name": "patrick", "email": "patrick@example.com"}},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	got = run(t, b, `{ user(name: "patrick") { email(secure: false) } }`, nil)
	require.Equal(t, []executor.GraphQLError{forbidden("Cannot see email for this user", "user", "email")}, got.Errors)
}

func TestResolve_FaultsStayOnTheirField(t *testing.T) {
	reg := NewRegistry().Enum(flavourEnum).Query(
		&Field{Name: "boom", Type: named("String"), Resolve: func(context.Context, any, map[string]any) (any, error) {
			return nil, errors.New("freezer is empty")
		}},
		&Field{Name: "panics", Type: named("String"), Resolve: func(context.Context, any, map[string]any) (any, error) {
			panic("melted")
		}},
		&Field{Name: "stock", Type: named("Int"), Resolve: func(context.Context, any, map[string]any) (any, error) {
			return nil, &gqlerror.Error{Message: "out of stock", Extensions: map[string]any{"code": "OUT_OF_STOCK"}}
		}},
		&Field{Name: "unknown", Type: named("IceCreamFlavour"), Resolve: value("pistachio")},
		&Field{Name: "fine", Type: named("String"), Resolve: value("fine")},
	)
	b := mustBuild(t, reg)

	got := run(t, b, `{ boom panics stock unknown fine }`, nil)
	want := &executor.ExecutionResult{
		Data: map[string]any{"boom": nil, "panics": nil, "stock": nil, "unknown": nil, "fine": "fine"},
		Errors: []executor.GraphQLError{
			{Message: "freezer is empty", Path: executor.Path{"boom"}},
			{Message: "resolver panicked: melted", Path: executor.Path{"panics"}},
			{Message: "out of stock", Path: executor.Path{"stock"}, Extensions: map[string]any{"code": "OUT_OF_STOCK"}},
			{Message: `enum "IceCreamFlavour" has no value "pistachio"`, Path: executor.Path{"unknown"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldResolver_StateMachine(t *testing.T) {
	var invoked int
	reg := NewRegistry().Enum(flavourEnum).Query(&Field{
		Name: "pick",
		Type: named("IceCreamFlavour"),
		Args: []Argument{{Name: "flavour", Type: named("IceCreamFlavour"), Default: "STRAWBERRY"}},
		Resolve: func(ctx context.Context, _ any, args map[string]any) (any, error) {
			invoked++
			fc, ok := FieldContextFrom(ctx)
			require.True(t, ok)
			require.Equal(t, &FieldContext{ObjectType: "Query", Field: "pick", Path: executor.Path{"pick"}}, fc)
			return args["flavour"], nil
		},
	})
	fr := mustBuild(t, reg).Runtime.Resolver()
	path := executor.Path{"pick"}

	t.Run("default applied", func(t *testing.T) {
		v, err := fr.Resolve(context.Background(), "Query", "pick", path, nil, nil)
		require.NoError(t, err)
		require.Equal(t, "STRAWBERRY", v)
	})

	t.Run("cancelled", func(t *testing.T) {
		invoked = 0
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := fr.Resolve(ctx, "Query", "pick", path, nil, nil)
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, KindCancelled, fe.Kind)
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, invoked)
	})

	t.Run("unknown member", func(t *testing.T) {
		invoked = 0
		_, err := fr.Resolve(context.Background(), "Query", "pick", path, nil, map[string]any{"flavour": "PISTACHIO"})
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, KindEnumCoercion, fe.Kind)
		require.EqualError(t, err, `argument "flavour": enum "IceCreamFlavour" has no member "PISTACHIO"`)
		require.Equal(t, path, fe.Path)
		require.Nil(t, fe.Extensions())
		require.Zero(t, invoked)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := fr.Resolve(context.Background(), "Query", "nope", executor.Path{"nope"}, nil, nil)
		require.EqualError(t, err, "no resolver is registered for Query.nope")
	})
}

func TestResolve_PublishesEventsAndLogs(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	var denied []events.FieldDenied
	var faults []events.FieldFault
	eventbus.On(bus, func(_ context.Context, e events.FieldDenied) { denied = append(denied, e) })
	eventbus.On(bus, func(_ context.Context, e events.FieldFault) { faults = append(faults, e) })

	var lines []string
	logger := funcr.New(func(prefix, args string) { lines = append(lines, args) }, funcr.Options{Verbosity: 2})

	reg := NewRegistry().Query(
		&Field{Name: "denied", Type: named("String"), Permissions: []permission.Check{denyAll("no")}},
		&Field{Name: "missing", Type: named("String"), Permissions: []permission.Check{isAuthenticated{}}},
		&Field{Name: "broken", Type: named("String"), Resolve: func(context.Context, any, map[string]any) (any, error) {
			return nil, errors.New("broken")
		}},
		&Field{Name: "ok", Type: named("String"), Resolve: value("ok")},
	)
	b := mustBuild(t, reg)
	ctx := log.WithLogger(context.Background(), logger)
	_ = runCtx(t, ctx, b, `{ denied missing broken ok }`, nil)

	require.Len(t, denied, 2)
	require.Equal(t, events.FieldDenied{ObjectType: "Query", Field: "denied", Path: []any{"denied"}, Kind: "denied", Message: "no"}, denied[0])
	require.Equal(t, "missing_implementation", denied[1].Kind)
	require.Len(t, faults, 1)
	require.Equal(t, "broken", faults[0].Field)
	require.EqualError(t, faults[0].Err, "broken")

	joined := ""
	for _, l := range lines {
		joined += l + "\n"
	}
	require.Contains(t, joined, `"msg"="field denied"`)
	require.Contains(t, joined, `"msg"="permission check has no HasPermission"`)
	require.Contains(t, joined, `"msg"="field resolved"`)
}
