package clienterror

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestWriteIsValidResponse(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Write(buf, 502, "Bad Gateway", "Proxy could not connect to end server", "example.com"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.0 502 Bad Gateway\r\n") {
		t.Fatalf("Status line wrong: %q", buf.String())
	}

	res, err := http.ReadResponse(bufio.NewReader(buf), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("Status code is %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/html" {
		t.Fatalf("Content-Type is %s", ct)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(body)) != res.ContentLength {
		t.Fatalf("Body length %d, Content-length %d", len(body), res.ContentLength)
	}
	for _, part := range []string{"502: Bad Gateway", "Proxy could not connect to end server", "example.com"} {
		if !bytes.Contains(body, []byte(part)) {
			t.Fatalf("Body misses %q: %s", part, body)
		}
	}
}

func TestWriteEscapesCause(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Write(buf, 400, "Bad Request", "Proxy could not parse the URI", "<script>alert(1)</script>"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Fatalf("Cause not escaped: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("Cause missing: %s", buf.String())
	}

	res, err := http.ReadResponse(bufio.NewReader(buf), nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	if int64(len(body)) != res.ContentLength {
		t.Fatalf("Body length %d, Content-length %d", len(body), res.ContentLength)
	}
}
