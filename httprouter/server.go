package httprouter

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	reuse "github.com/libp2p/go-reuseport"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/http2"

	"github.com/danintel/trusted-compute-framework/log"
)

const desiredSoMaxConn = 1024

// Init creates the multiplexer and starts serving on host:port, with TLS if
// TLSdomain is set. A zero port picks a free one, see Address.
func (r *HTTProuter) Init(host string, port int) error {
	ln, err := reuse.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	if n := somaxconn(); n < desiredSoMaxConn {
		log.Warnf("operating system SOMAXCONN (%d) is smaller than %d, "+
			"queued work order submissions may be refused", n, desiredSoMaxConn)
	}
	r.InitMux()

	// no write timeout: synchronous work orders hold the connection for up
	// to responseTimeoutMSecs
	s := &http.Server{
		Handler:           r.Mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       20 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	var manager *autocert.Manager
	if r.TLSdomain != "" {
		manager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(r.TLSdomain),
			Cache:      autocert.DirCache(r.TLSdirCert),
		}
		s.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS13,
			GetCertificate: manager.GetCertificate,
			NextProtos:     []string{acme.ALPNProto},
		}
	}
	if err := http2.ConfigureServer(s, nil); err != nil {
		return err
	}
	r.server = s
	r.address = ln.Addr()

	go func() {
		var err error
		if manager != nil {
			err = s.ServeTLS(ln, "", "")
		} else {
			err = s.Serve(ln)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	if manager != nil {
		log.Infof("fetching letsencrypt certificate for %s", r.TLSdomain)
		if _, err := manager.GetCertificate(&tls.ClientHelloInfo{ServerName: r.TLSdomain}); err != nil {
			_ = s.Close()
			return fmt.Errorf("cannot get letsencrypt certificate for %s "+
				"(is port 443 redirected to %d?): %w", r.TLSdomain, port, err)
		}
		log.Infof("router ready at https://%s", r.address)
		return nil
	}
	log.Infof("router ready at http://%s", r.address)
	return nil
}

// Close stops the server started by Init.
func (r *HTTProuter) Close() error {
	if r.server == nil {
		return nil
	}
	return r.server.Close()
}

func somaxconn() int {
	content, err := os.ReadFile("/proc/sys/net/core/somaxconn")
	if err != nil {
		return syscall.SOMAXCONN
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return syscall.SOMAXCONN
	}
	return n
}
