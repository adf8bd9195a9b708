package proxyuri

import (
	"errors"
	"net"
	"strings"
)

var ErrMalformedURI = errors.New("malformed request URI")

const (
	schemePrefix = "http://"
	defaultPort  = "80"
	defaultPath  = "/"
)

// Target is the origin location of an absolute-form request target.
type Target struct {
	Host string
	Port string
	Path string
}

// Addr returns the dial address of the origin, e.g. `example.com:80`.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, t.Port)
}

// Parse splits an absolute-form request target (`http://host[:port][/path]`) into
// its host, port and path.
// Origin-form targets (`/path`) are rejected, since the proxy has no other source for the host.
// The port is truncated at the first non-digit and defaults to 80.
func Parse(uri string) (Target, error) {
	if len(uri) < len(schemePrefix) || !strings.EqualFold(uri[:len(schemePrefix)], schemePrefix) {
		return Target{}, ErrMalformedURI
	}
	rest := uri[len(schemePrefix):]

	t := Target{Port: defaultPort, Path: defaultPath}
	hostport := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostport = rest[:i]
		t.Path = rest[i:]
	}

	host, port, found := strings.Cut(hostport, ":")
	t.Host = host
	if found {
		if p := leadingDigits(port); p != "" {
			t.Port = p
		}
	}

	if t.Host == "" {
		return Target{}, ErrMalformedURI
	}
	return t, nil
}

func leadingDigits(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s[:i]
		}
	}
	return s
}
