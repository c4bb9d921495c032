// Package metrics exposes the prometheus collectors of the worker and the
// signature layer on the HTTP router.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danintel/trusted-compute-framework/httprouter"
	"github.com/danintel/trusted-compute-framework/log"
)

// Namespace prefixes every collector of the project.
const Namespace = "tcf"

// Agent serves the default prometheus registry.
type Agent struct {
	Path string
}

// NewAgent mounts the metrics handler on the router at path.
func NewAgent(path string, router *httprouter.HTTProuter) *Agent {
	handler := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog: errorLogger{},
			// the router middleware already compresses
			DisableCompression: true,
		}))
	router.AddRawHTTPHandler(path, http.MethodGet, handler.ServeHTTP)
	log.Infof("prometheus metrics ready at %s", path)
	return &Agent{Path: path}
}

// Register adds c to the default registry. Registering the same collector
// again is not an error; other failures are only logged.
func Register(c prometheus.Collector) {
	err := prometheus.Register(c)
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		log.Warnf("cannot register metrics: %v", err)
	}
}

type errorLogger struct{}

func (errorLogger) Println(v ...any) { log.Warn(v...) }
