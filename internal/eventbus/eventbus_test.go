package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type denied struct{ Field string }
type fault struct{ Field string }

func TestBus_DispatchesByType(t *testing.T) {
	b := New()
	var got []string
	On(b, func(_ context.Context, e denied) { got = append(got, "denied:"+e.Field) })
	On(b, func(_ context.Context, e fault) { got = append(got, "fault:"+e.Field) })

	Emit(context.Background(), b, denied{"email"})
	Emit(context.Background(), b, fault{"flavour"})
	Emit(context.Background(), b, "ignored")

	require.Equal(t, []string{"denied:email", "fault:flavour"}, got)
}

func TestBus_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var first, second int
	off := On(b, func(context.Context, denied) { first++ })
	On(b, func(context.Context, denied) { second++ })

	off()
	off()
	Emit(context.Background(), b, denied{})
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)
}

func TestGlobal_NilBusIsNoop(t *testing.T) {
	Use(nil)
	off := Subscribe(func(context.Context, denied) { t.Fatal("unexpected call") })
	Publish(context.Background(), denied{})
	off()

	b := New()
	Use(b)
	defer Use(nil)
	n := 0
	defer Subscribe(func(context.Context, denied) { n++ })()
	Publish(context.Background(), denied{})
	require.Equal(t, 1, n)
}
