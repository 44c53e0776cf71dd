package demo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// User is a registered customer.
type User struct {
	Name  string
	Email string
}

// Scoop is one scoop of ice cream. Flavour holds the Go value of an
// IceCreamFlavour member.
type Scoop struct {
	Flavour any `graphql:"flavour"`
	Grams   int
}

// Cone is an order placed by Owner.
type Cone struct {
	ID     string `graphql:"id"`
	Owner  string
	Scoops []Scoop
	Waffle bool
}

// Store keeps users, cone orders and flavour prices in memory.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*User
	cones  map[string]*Cone
	prices map[any]int // flavour value -> cents per 100g
	nextID int
}

// NewStore returns a store seeded with a few users and prices.
func NewStore() *Store {
	s := &Store{
		users:  make(map[string]*User),
		cones:  make(map[string]*Cone),
		prices: make(map[any]int),
		nextID: 1,
	}
	s.seedData()
	return s
}

func (s *Store) seedData() {
	for _, u := range []*User{
		{Name: "patrick", Email: "patrick@example.com"},
		{Name: "marco", Email: "marco@example.com"},
	} {
		s.users[u.Name] = u
	}
	s.prices[Vanilla] = 250
	s.prices[Strawberry] = 300
	s.prices[Chocolate] = 350
}

// User returns the user named name, or nil.
func (s *Store) User(name string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[name]
}

// PlaceOrder stores a new cone for owner.
func (s *Store) PlaceOrder(owner string, scoops []Scoop, waffle bool) (*Cone, error) {
	if len(scoops) == 0 {
		return nil, fmt.Errorf("a cone needs at least one scoop")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scoops {
		if _, ok := s.prices[sc.Flavour]; !ok {
			return nil, fmt.Errorf("flavour %#v is sold out", sc.Flavour)
		}
	}
	c := &Cone{ID: strconv.Itoa(s.nextID), Owner: owner, Scoops: scoops, Waffle: waffle}
	s.nextID++
	s.cones[c.ID] = c
	return c, nil
}

// Cones lists the cones of owner, oldest first.
func (s *Store) Cones(owner string) []*Cone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Cone{}
	for _, c := range s.cones {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}

// Prices looks up the price of every scoop in one pass. A scoop with an
// unknown flavour gets an error.
func (s *Store) Prices(ctx context.Context, scoops []Scoop) ([]int, []error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prices := make([]int, len(scoops))
	errs := make([]error, len(scoops))
	for i, sc := range scoops {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		cents, ok := s.prices[sc.Flavour]
		if !ok {
			errs[i] = fmt.Errorf("no price for flavour %#v", sc.Flavour)
			continue
		}
		prices[i] = cents * sc.Grams / 100
	}
	return prices, errs
}
