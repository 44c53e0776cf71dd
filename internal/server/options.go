package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"
)

// Options configures a Handler.
type Options struct {
	// Timeout bounds requests whose context carries no deadline. Zero
	// disables it.
	Timeout time.Duration

	Pretty bool

	// MaxBodyBytes caps POST bodies. Zero means unlimited.
	MaxBodyBytes int64

	// CORS is off while AllowedOrigins is empty.
	CORS CORSOptions

	GraphiQL bool

	// Context derives the resolver context from the request, e.g. to attach
	// the viewer the permission checks look at.
	Context func(ctx context.Context, r *http.Request) context.Context

	// Logger is stored in every request context, tagged with the request id.
	Logger logr.Logger
}

// CORSOptions lists the origins allowed to call the endpoint. "*" allows any.
type CORSOptions struct {
	AllowedOrigins []string
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{Timeout: 10 * time.Second, GraphiQL: true}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func WithPretty() Option {
	return func(o *Options) { o.Pretty = true }
}

func WithMaxBodyBytes(n int64) Option {
	return func(o *Options) { o.MaxBodyBytes = n }
}

func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

func WithGraphiQL(enable bool) Option {
	return func(o *Options) { o.GraphiQL = enable }
}

func WithContext(f func(ctx context.Context, r *http.Request) context.Context) Option {
	return func(o *Options) { o.Context = f }
}

func WithLogger(l logr.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
