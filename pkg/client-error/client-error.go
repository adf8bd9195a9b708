package clienterror

import (
	"fmt"
	"html"
	"io"
)

// Write sends a minimal HTML error page to the client.
// The header block is written first, then the body. Nothing else is done with the connection.
// cause usually comes from the client and is escaped.
func Write(w io.Writer, code int, shortMsg, longMsg, cause string) error {
	body := fmt.Sprintf("<html><title>Proxy Error</title>"+
		"<body bgcolor=\"ffffff\">\r\n"+
		"%d: %s\r\n"+
		"<p>%s: %s\r\n"+
		"<hr><em>The Web Proxy</em>\r\n"+
		"</body></html>", code, shortMsg, longMsg, html.EscapeString(cause))
	header := fmt.Sprintf("HTTP/1.0 %d %s\r\n"+
		"Content-type: text/html\r\n"+
		"Content-length: %d\r\n\r\n", code, shortMsg, len(body))

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := io.WriteString(w, body)
	return err
}
