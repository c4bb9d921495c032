// Package httprouter serves the worker HTTP endpoints on a go-chi
// multiplexer. Handlers are grouped in namespaces: the namespace decodes the
// request body once and its handlers receive the decoded value in a Message.
package httprouter

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/danintel/trusted-compute-framework/log"
)

// DefaultMaxInflight is the number of requests served at once when
// HTTProuter.MaxInflight is zero.
const DefaultMaxInflight = 512

// Namespace decodes the requests of a group of handlers.
type Namespace interface {
	Decode(req *http.Request) (data any, err error)
}

// HandlerFn handles a decoded request. It must answer through
// msg.Context.Send or SendJSON.
type HandlerFn = func(msg Message)

// HTTProuter is the HTTP(S) front of a service. The zero value is ready to
// be configured; InitMux or Init must be called before adding handlers.
type HTTProuter struct {
	Mux *chi.Mux
	// TLSdomain enables HTTPS with a letsencrypt certificate for the domain.
	TLSdomain string
	// TLSdirCert caches the letsencrypt certificates.
	TLSdirCert string
	// MaxInflight bounds the requests served at once, the next ones wait
	// in a backlog of ten times that size.
	MaxInflight int

	address      net.Addr
	server       *http.Server
	prometheusID string

	namespaces     map[string]Namespace
	namespacesLock sync.RWMutex
}

// InitMux creates the multiplexer and its middlewares without listening.
// Init calls it; tests can serve Mux with net/http/httptest.
func (r *HTTProuter) InitMux() {
	if r.MaxInflight <= 0 {
		r.MaxInflight = DefaultMaxInflight
	}
	r.namespaces = make(map[string]Namespace, 2)
	r.Mux = chi.NewRouter()
	r.Mux.Use(middleware.RealIP)
	r.Mux.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  stdLogger{log.Logger()},
		NoColor: true,
	}))
	r.Mux.Use(middleware.Recoverer)
	r.Mux.Use(middleware.Heartbeat("/ping"))
	r.Mux.Use(middleware.ThrottleBacklog(r.MaxInflight, 10*r.MaxInflight, time.Minute))
	r.Mux.Use(middleware.Compress(5))
	r.Mux.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if r.prometheusID != "" {
		r.Mux.Use(chiprometheus.NewMiddleware(r.prometheusID))
	}
	// preflight requests are answered by cors, this only avoids a 405
	r.Mux.Options("/*", func(http.ResponseWriter, *http.Request) {})
}

// EnablePrometheusMetrics adds request metrics labelled with id, or
// "gochi_http" if empty. It must be called before InitMux or Init.
func (r *HTTProuter) EnablePrometheusMetrics(id string) {
	if id == "" {
		id = "gochi_http"
	}
	r.prometheusID = id
}

// Address returns the address the router listens on, once Init returned.
func (r *HTTProuter) Address() net.Addr {
	return r.address
}

// AddNamespace registers the decoder of the namespace id.
func (r *HTTProuter) AddNamespace(id string, ns Namespace) {
	r.namespacesLock.Lock()
	defer r.namespacesLock.Unlock()
	r.namespaces[id] = ns
	log.Debugf("added namespace %s", id)
}

func (r *HTTProuter) namespace(id string) (Namespace, bool) {
	r.namespacesLock.RLock()
	defer r.namespacesLock.RUnlock()
	ns, ok := r.namespaces[id]
	return ns, ok
}

// AddHandler serves method requests on pattern with handler, after the
// namespace decoded them. Requests the namespace cannot decode get a 400.
func (r *HTTProuter) AddHandler(namespaceID, pattern, method string, handler HandlerFn) {
	log.Infow("added handler", "namespace", namespaceID, "method", method, "pattern", pattern)
	r.Mux.MethodFunc(method, pattern, func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		ns, ok := r.namespace(namespaceID)
		if !ok {
			log.Errorf("namespace %s is not defined", namespaceID)
			http.Error(w, "namespace not defined", http.StatusInternalServerError)
			return
		}
		data, err := ns.Decode(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		hc := &HTTPContext{Request: req, Writer: w}
		handler(Message{Data: data, Received: time.Now(), Context: hc})
		if !hc.sent {
			log.Errorf("handler for %s %s returned without a response", method, pattern)
			http.Error(w, "no response", http.StatusInternalServerError)
		}
	})
}

// AddRawHTTPHandler serves method requests on pattern with a plain net/http
// handler.
func (r *HTTProuter) AddRawHTTPHandler(pattern, method string, handler http.HandlerFunc) {
	log.Infow("added handler", "type", "raw", "method", method, "pattern", pattern)
	r.Mux.MethodFunc(method, pattern, handler)
}

type stdLogger struct {
	log *zap.SugaredLogger
}

func (l stdLogger) Print(v ...any) { l.log.Debug(fmt.Sprint(v...)) }
