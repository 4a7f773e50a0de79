package web

import (
	"net/http"

	"github.com/dominicf2001/comfyforum/internal/auth"
	"github.com/dominicf2001/comfyforum/web/views"
)

// BuildContext projects the caller's identity into the base page context.
func BuildContext(r *http.Request) views.Context {
	username, _ := auth.CurrentUser(auth.FromContext(r.Context()))
	return views.Context{Username: username}
}
