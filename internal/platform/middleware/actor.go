package middleware

import (
	"net/http"
	"strings"

	"matricula/pkg/domain"
	"matricula/pkg/requestcontext"
)

// Actor attribution headers. These identify who performed an action for the
// audit trail; they are never used for authorization.
const (
	ActorNameHeader    = "X-Actor-Name"
	ActorContactHeader = "X-Actor-Contact"
)

// Actor reads the attribution headers into the request context. Requests
// without them are attributed to the system actor downstream.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.Header.Get(ActorNameHeader))
		if name == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor := domain.Actor{
			Name:    name,
			Contact: strings.TrimSpace(r.Header.Get(ActorContactHeader)),
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), actor)))
	})
}
