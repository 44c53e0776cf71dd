// Package demo is a small ice cream shop schema. It exercises enum members
// with falsy values, permissions on root, nested and plain source fields,
// input objects with enum defaults, batched fields, a union and a
// subscription.
package demo

import (
	"context"
	"fmt"
	"time"

	enum "github.com/hanpama/permgraph/internal/enum"
	log "github.com/hanpama/permgraph/internal/log"
	permission "github.com/hanpama/permgraph/internal/permission"
	resolver "github.com/hanpama/permgraph/internal/resolver"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Go values of the IceCreamFlavour members.
const (
	Vanilla    = ""
	Strawberry = 0
	Chocolate  = "chocolate"
)

// Flavour is the IceCreamFlavour enum.
var Flavour = enum.MustNew("IceCreamFlavour",
	enum.Value{Name: "VANILLA", Value: Vanilla, Description: "The house favourite."},
	enum.Value{Name: "STRAWBERRY", Value: Strawberry},
	enum.Value{Name: "CHOCOLATE", Value: Chocolate},
).WithDescription("Flavours on sale today.")

type shop struct {
	store *Store
}

// New builds the shop schema on top of store.
func New(store *Store, opts ...resolver.Option) (*resolver.Bundle, error) {
	s := &shop{store: store}
	return s.registry().Build(opts...)
}

func named(name string) *schema.TypeRef { return schema.NamedType(name) }

func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }

func listOf(name string) *schema.TypeRef {
	return schema.NonNullType(schema.ListType(nonNull(name)))
}

func (s *shop) registry() *resolver.Registry {
	authenticated := []permission.Check{isAuthenticated}

	return resolver.NewRegistry().
		Describe("Ice cream shop").
		Enum(Flavour).
		Object(&resolver.Object{Name: "User", GoType: &User{}, Fields: []*resolver.Field{
			{Name: "name", Type: nonNull("String")},
			{
				Name:        "email",
				Type:        named("String"),
				Args:        []resolver.Argument{{Name: "secure", Type: named("Boolean"), Default: true}},
				Permissions: []permission.Check{canSeeEmail},
			},
		}}).
		Object(&resolver.Object{Name: "Scoop", GoType: Scoop{}, Fields: []*resolver.Field{
			{Name: "flavour", Type: nonNull("IceCreamFlavour")},
			{Name: "grams", Type: nonNull("Int")},
			{Name: "price", Description: "Price in cents.", Type: named("Int"), ResolveBatch: s.prices},
		}}).
		Object(&resolver.Object{Name: "Cone", GoType: Cone{}, Fields: []*resolver.Field{
			{Name: "id", Type: nonNull("ID")},
			{Name: "owner", Type: named("User"), Resolve: s.owner},
			{Name: "scoops", Type: listOf("Scoop")},
			{Name: "waffle", Type: nonNull("Boolean")},
		}}).
		Union(&resolver.Union{Name: "Treat", Types: []string{"Scoop", "Cone"}}).
		Input(&resolver.Input{Name: "ConeInput", Fields: []resolver.Argument{
			{Name: "flavours", Type: listOf("IceCreamFlavour")},
			{Name: "grams", Type: named("Int"), Default: 100, Description: "Weight of each scoop."},
			{Name: "waffle", Type: named("Boolean"), Default: false},
		}}).
		Query(
			&resolver.Field{Name: "me", Type: named("User"), Permissions: authenticated, Resolve: s.me},
			&resolver.Field{
				Name:    "user",
				Type:    named("User"),
				Args:    []resolver.Argument{{Name: "name", Type: nonNull("String")}},
				Resolve: s.user,
			},
			&resolver.Field{Name: "flavours", Type: listOf("IceCreamFlavour"), Resolve: flavours},
			&resolver.Field{Name: "bestFlavour", Type: nonNull("IceCreamFlavour"), Resolve: bestFlavour},
			&resolver.Field{
				Name: "scoop",
				Type: nonNull("Scoop"),
				Args: []resolver.Argument{
					{Name: "flavour", Type: named("IceCreamFlavour"), Default: "VANILLA"},
					{Name: "grams", Type: named("Int"), Default: 100},
				},
				Resolve: scoop,
			},
			&resolver.Field{Name: "myCones", Type: listOf("Cone"), Permissions: authenticated, Async: true, Resolve: s.myCones},
			&resolver.Field{Name: "menu", Type: listOf("Treat"), Resolve: menu},
		).
		Mutation(&resolver.Field{
			Name:        "orderCone",
			Type:        nonNull("Cone"),
			Args:        []resolver.Argument{{Name: "order", Type: nonNull("ConeInput")}},
			Permissions: authenticated,
			Resolve:     s.orderCone,
		}).
		Subscription(&resolver.Field{
			Name:        "melting",
			Description: "A scoop losing weight until it is gone.",
			Type:        nonNull("Scoop"),
			Args: []resolver.Argument{
				{Name: "flavour", Type: named("IceCreamFlavour"), Default: "VANILLA"},
				{Name: "every", Type: named("Int"), Default: 1000, Description: "Milliseconds between events."},
			},
			Permissions:                authenticated,
			RecheckPermissionsPerEvent: true,
			Subscribe:                  melting,
		})
}

func (s *shop) me(ctx context.Context, _ any, _ map[string]any) (any, error) {
	name, _ := ViewerFrom(ctx)
	if u := s.store.User(name); u != nil {
		return u, nil
	}
	return nil, nil
}

func (s *shop) user(_ context.Context, _ any, args map[string]any) (any, error) {
	if u := s.store.User(args["name"].(string)); u != nil {
		return u, nil
	}
	return nil, nil
}

func (s *shop) owner(_ context.Context, source any, _ map[string]any) (any, error) {
	if u := s.store.User(source.(*Cone).Owner); u != nil {
		return u, nil
	}
	return nil, nil
}

func flavours(context.Context, any, map[string]any) (any, error) {
	return []any{Vanilla, Strawberry, Chocolate}, nil
}

func bestFlavour(context.Context, any, map[string]any) (any, error) {
	return Vanilla, nil
}

func scoop(_ context.Context, _ any, args map[string]any) (any, error) {
	grams, _ := args["grams"].(int)
	return Scoop{Flavour: args["flavour"], Grams: grams}, nil
}

func (s *shop) myCones(ctx context.Context, _ any, _ map[string]any) (any, error) {
	name, _ := ViewerFrom(ctx)
	return s.store.Cones(name), nil
}

func menu(context.Context, any, map[string]any) (any, error) {
	return []any{
		Scoop{Flavour: Strawberry, Grams: 100},
		&Cone{ID: "classic", Scoops: []Scoop{{Flavour: Vanilla, Grams: 100}, {Flavour: Chocolate, Grams: 100}}, Waffle: true},
	}, nil
}

type coneOrder struct {
	Flavours []any `graphql:"flavours"`
	Grams    int   `graphql:"grams"`
	Waffle   bool  `graphql:"waffle"`
}

func (s *shop) orderCone(ctx context.Context, _ any, args map[string]any) (any, error) {
	var order coneOrder
	if err := resolver.DecodeArgs(args["order"].(map[string]any), &order); err != nil {
		return nil, err
	}
	scoops := make([]Scoop, len(order.Flavours))
	for i, f := range order.Flavours {
		scoops[i] = Scoop{Flavour: f, Grams: order.Grams}
	}
	viewer, _ := ViewerFrom(ctx)
	c, err := s.store.PlaceOrder(viewer, scoops, order.Waffle)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Info("cone ordered", "id", c.ID, "scoops", len(scoops))
	return c, nil
}

func (s *shop) prices(ctx context.Context, reqs []resolver.Request) []resolver.Result {
	scoops := make([]Scoop, len(reqs))
	for i, r := range reqs {
		switch v := r.Source.(type) {
		case Scoop:
			scoops[i] = v
		case *Scoop:
			scoops[i] = *v
		}
	}
	prices, errs := s.store.Prices(ctx, scoops)
	out := make([]resolver.Result, len(reqs))
	for i := range reqs {
		out[i] = resolver.Result{Value: prices[i], Err: errs[i]}
	}
	return out
}

// melting sends the scoop at 100, 75, 50, 25 and 0 grams.
func melting(ctx context.Context, _ any, args map[string]any) (<-chan any, error) {
	every, _ := args["every"].(int)
	if every <= 0 {
		return nil, fmt.Errorf("every must be positive, got %d", every)
	}
	flavour := args["flavour"]
	ch := make(chan any)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(time.Duration(every) * time.Millisecond)
		defer ticker.Stop()
		for grams := 100; grams >= 0; grams -= 25 {
			select {
			case ch <- Scoop{Flavour: flavour, Grams: grams}:
			case <-ctx.Done():
				return
			}
			if grams == 0 {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
