package resolver

import (
	"context"
	"fmt"

	executor "github.com/hanpama/permgraph/internal/executor"
	log "github.com/hanpama/permgraph/internal/log"
)

// Subscribe sets up a subscription field. Permissions are checked here, once;
// a field with RecheckPermissionsPerEvent checks them again before each event
// and ends the stream after the first denied event.
func (r *Runtime) Subscribe(ctx context.Context, objectType string, field string, path executor.Path, source any, rawArgs map[string]any) (<-chan any, error) {
	res := r.resolver
	b, err := res.lookup(objectType, field, path)
	if err != nil {
		return nil, err
	}
	if b.field.Subscribe == nil {
		return nil, &FieldError{Kind: KindResolution, Message: fmt.Sprintf("%s.%s is not a subscription field", objectType, field), Path: path}
	}
	fctx, args, err := res.prepare(ctx, b, path, source, rawArgs)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(fctx)
	stream, err := openStream(subCtx, b.field.Subscribe, source, args)
	if err != nil {
		cancel()
		_, err = res.complete(fctx, b, path, nil, err)
		return nil, err
	}
	log.FromContext(fctx).V(1).Info("subscription started")

	out := make(chan any)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-subCtx.Done():
				return
			case ev, ok := <-stream:
				if !ok {
					return
				}
				item, last := r.event(subCtx, b, path, source, args, ev)
				select {
				case out <- item:
				case <-subCtx.Done():
					return
				}
				if last {
					return
				}
			}
		}
	}()
	return out, nil
}

// event maps one source event to the item handed to the executor. last is
// set when the stream must end after this item.
func (r *Runtime) event(ctx context.Context, b *binding, path executor.Path, source any, args map[string]any, ev any) (item any, last bool) {
	res := r.resolver
	if b.field.RecheckPermissionsPerEvent {
		if err := res.gate(ctx, log.FromContext(ctx), b, path, source, args); err != nil {
			return err, true
		}
	}
	var evErr error
	if err, ok := ev.(error); ok {
		ev, evErr = nil, err
	}
	v, err := res.complete(ctx, b, path, ev, evErr)
	if err != nil {
		return err, false
	}
	return v, false
}

func openStream(ctx context.Context, fn SubscribeFunc, source any, args map[string]any) (ch <-chan any, err error) {
	defer func() {
		if p := recover(); p != nil {
			ch, err = nil, fmt.Errorf("resolver panicked: %v", p)
		}
	}()
	ch, err = fn(ctx, source, args)
	if err == nil && ch == nil {
		err = fmt.Errorf("subscribe returned no stream")
	}
	return ch, err
}
