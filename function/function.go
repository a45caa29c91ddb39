// Package function exposes the application as Cloud Functions: "ping" and
// "updateSlot" are registered as HTTP functions, mirroring how the service
// was first deployed on Firebase.
package function

import (
	"context"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/iliyamo/volunteer-slot-sync/internal/app"
)

var (
	once     sync.Once
	instance *app.App
)

func init() {
	functions.HTTP("ping", Mount(lazyApp, "/ping"))
	functions.HTTP("updateSlot", Mount(lazyApp, "/updateSlot"))
}

// lazyApp bootstraps on the first invocation so that configuration is read
// once per instance and never at import time.
func lazyApp() http.Handler {
	once.Do(func() {
		instance = app.Bootstrap(context.Background())
	})
	return instance.Echo
}

// Mount serves every request through the handler returned by h with the
// URL path set to route.  The functions framework hands each function the
// raw request whatever path it was invoked on.
func Mount(h func() http.Handler, route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = route
		r2.URL.RawPath = ""
		h().ServeHTTP(w, r2)
	}
}
