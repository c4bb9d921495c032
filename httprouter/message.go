package httprouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danintel/trusted-compute-framework/log"
)

// DefaultContentType is the content type of responses unless SetContentType
// is called.
const DefaultContentType = "application/json"

// ErrAlreadySent is returned when a handler answers twice.
var ErrAlreadySent = errors.New("response already sent")

// Message is a request decoded by its namespace.
type Message struct {
	Data     any
	Received time.Time
	Context  *HTTPContext
}

// HTTPContext holds the HTTP exchange of a Message.
type HTTPContext struct {
	Writer  http.ResponseWriter
	Request *http.Request

	contentType string
	sent        bool
}

// SetContentType overrides DefaultContentType for the response.
func (h *HTTPContext) SetContentType(contentType string) {
	h.contentType = contentType
}

// URLParam returns the {key} parameter of the route pattern.
func (h *HTTPContext) URLParam(key string) string {
	return chi.URLParam(h.Request, key)
}

// SendJSON encodes v and sends it with the given status code.
func (h *HTTPContext) SendJSON(v any, status int) error {
	data, err := json.Marshal(v)
	if err != nil {
		h.sent = true
		http.Error(h.Writer, "cannot encode response", http.StatusInternalServerError)
		return err
	}
	return h.Send(data, status)
}

// Send answers the request with msg followed by a newline.
func (h *HTTPContext) Send(msg []byte, status int) error {
	if h.sent {
		return ErrAlreadySent
	}
	h.sent = true
	if err := h.Request.Context().Err(); err != nil {
		return err
	}
	contentType := h.contentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	h.Writer.Header().Set("Content-Type", contentType)
	if status == http.StatusNoContent {
		h.Writer.WriteHeader(status)
		return nil
	}
	h.Writer.Header().Set("Content-Length", strconv.Itoa(len(msg)+1))
	h.Writer.WriteHeader(status)
	if len(msg) > 256 {
		log.Debugw("http response", "status", status, "data", string(msg[:256])+"...")
	} else {
		log.Debugw("http response", "status", status, "data", string(msg))
	}
	if _, err := h.Writer.Write(msg); err != nil {
		return err
	}
	_, err := h.Writer.Write([]byte{'\n'})
	return err
}
