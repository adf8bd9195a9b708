package requestbuilder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// UserAgent is sent to every origin in place of the client's own User-Agent.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:10.0.3) Gecko/20120305 Firefox/10.0.3"

// ownedHeaders are the header names the proxy writes itself.
// Client lines starting with any of these (case-insensitively) are dropped.
var ownedHeaders = []string{
	"Host:",
	"User-Agent:",
	"Connection:",
	"Proxy-Connection:",
}

// Build reads the client's header block from r and returns the HTTP/1.0 request to send to the origin.
// Reading stops at the first blank line or at the end of input.
// A read error other than io.EOF is returned along with the request built so far.
func Build(host, path string, r *bufio.Reader) ([]byte, error) {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "GET %s HTTP/1.0\r\n", path)
	fmt.Fprintf(buf, "Host: %s\r\n", host)
	fmt.Fprintf(buf, "User-Agent: %s\r\n", UserAgent)
	buf.WriteString("Connection: close\r\n")
	buf.WriteString("Proxy-Connection: close\r\n")

	var readErr error
	for {
		line, err := r.ReadString('\n')
		if line == "\r\n" || line == "\n" {
			break
		}
		if line != "" && !IsOwned(line) {
			buf.WriteString(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	buf.WriteString("\r\n")
	return buf.Bytes(), readErr
}

// IsOwned reports whether a raw header line names a header the proxy controls.
func IsOwned(line string) bool {
	for _, name := range ownedHeaders {
		if len(line) >= len(name) && strings.EqualFold(line[:len(name)], name) {
			return true
		}
	}
	return false
}
