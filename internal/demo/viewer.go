package demo

import (
	"context"
	"net/http"
	"strings"

	permission "github.com/hanpama/permgraph/internal/permission"
)

type viewerKey struct{}

// WithViewer returns ctx carrying the name of the signed-in user.
func WithViewer(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, viewerKey{}, name)
}

// ViewerFrom returns the signed-in user name stored in ctx.
func ViewerFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(viewerKey{}).(string)
	return name, ok && name != ""
}

// ViewerFromRequest reads "Authorization: Bearer <name>" into the request
// context. It fits server.WithContext.
func ViewerFromRequest(ctx context.Context, r *http.Request) context.Context {
	auth := r.Header.Get("Authorization")
	name, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || strings.TrimSpace(name) == "" {
		return ctx
	}
	return WithViewer(ctx, strings.TrimSpace(name))
}

// IsAuthenticated allows fields only when a viewer is signed in.
type IsAuthenticated struct{ permission.Base }

func (IsAuthenticated) HasPermission(ctx context.Context, _ any, _ map[string]any) (bool, error) {
	_, ok := ViewerFrom(ctx)
	return ok, nil
}

// CanSeeEmail allows a user's email to that user only, and only when the
// field is asked for with secure: true.
type CanSeeEmail struct{ permission.Base }

func (CanSeeEmail) HasPermission(ctx context.Context, source any, args map[string]any) (bool, error) {
	viewer, _ := ViewerFrom(ctx)
	u, ok := source.(*User)
	if !ok {
		return false, nil
	}
	secure, _ := args["secure"].(bool)
	return secure && u.Name == viewer, nil
}

var (
	isAuthenticated = IsAuthenticated{permission.Base{Reason: "User is not authenticated"}}
	canSeeEmail     = CanSeeEmail{permission.Base{Reason: "Cannot see email for this user"}}
)
