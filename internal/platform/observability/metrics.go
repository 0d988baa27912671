package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default prometheus registry, where every promauto
// metric of the service is registered.
func Handler() http.Handler {
	return promhttp.Handler()
}
