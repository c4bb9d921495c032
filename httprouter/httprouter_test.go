package httprouter

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

type echoNamespace struct{}

func (echoNamespace) Decode(req *http.Request) (any, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if string(body) == "bad" {
		return nil, errors.New("cannot decode")
	}
	return body, nil
}

func do(c *qt.C, method, url, body string) (int, string) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	c.Assert(err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp.StatusCode, strings.TrimSpace(string(data))
}

func TestRouter(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	r := HTTProuter{}
	r.InitMux()
	r.AddNamespace("echo", echoNamespace{})
	r.AddHandler("echo", "/echo/{name}", http.MethodPost, func(msg Message) {
		msg.Context.SetContentType("text/plain")
		body := msg.Data.([]byte)
		c.Check(msg.Context.Send(append([]byte(msg.Context.URLParam("name")+":"), body...), http.StatusOK), qt.IsNil)
		c.Check(msg.Context.Send(nil, http.StatusOK), qt.ErrorIs, ErrAlreadySent)
	})
	r.AddHandler("echo", "/silent", http.MethodPost, func(msg Message) {})
	r.AddHandler("missing", "/missing", http.MethodGet, func(msg Message) {})
	srv := httptest.NewServer(r.Mux)
	defer srv.Close()

	status, body := do(c, http.MethodPost, srv.URL+"/echo/bob", "hi")
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Equals, "bob:hi")

	status, body = do(c, http.MethodPost, srv.URL+"/echo/bob", "bad")
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(body, qt.Equals, "cannot decode")

	status, _ = do(c, http.MethodPost, srv.URL+"/silent", "")
	c.Assert(status, qt.Equals, http.StatusInternalServerError)

	status, _ = do(c, http.MethodGet, srv.URL+"/ping", "")
	c.Assert(status, qt.Equals, http.StatusOK)

	status, _ = do(c, http.MethodGet, srv.URL+"/missing", "")
	c.Assert(status, qt.Equals, http.StatusInternalServerError)
}

func TestInitAndClose(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	r := HTTProuter{MaxInflight: 4}
	c.Assert(r.Init("127.0.0.1", 0), qt.IsNil)
	defer r.Close()
	c.Assert(r.MaxInflight, qt.Equals, 4)

	status, _ := do(c, http.MethodGet, "http://"+r.Address().String()+"/ping", "")
	c.Assert(status, qt.Equals, http.StatusOK)
}
