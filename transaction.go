package webproxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/always-cache/webproxy/journal"
	clienterror "github.com/always-cache/webproxy/pkg/client-error"
	proxyuri "github.com/always-cache/webproxy/pkg/proxy-uri"
	requestbuilder "github.com/always-cache/webproxy/pkg/request-builder"
	tee "github.com/always-cache/webproxy/pkg/response-writer-tee"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const relayChunkSize = 8192

type transaction struct {
	entry       journal.Entry
	cacheStatus CacheStatus
	log         zerolog.Logger
	err         error
}

// Handle runs one HTTP transaction on conn and returns its journal entry.
// It does not close conn.
func (p *Proxy) Handle(ctx context.Context, conn net.Conn) journal.Entry {
	txn := &transaction{
		entry: journal.Entry{
			ID:        uuid.NewString(),
			StartedAt: time.Now(),
			Remote:    remoteAddr(conn),
		},
	}
	txn.log = p.log.With().
		Str("txn", txn.entry.ID).
		Str("remote", txn.entry.Remote).
		Logger()

	txn.err = p.handle(ctx, conn, txn)
	p.finish(txn)
	return txn.entry
}

func (p *Proxy) handle(ctx context.Context, conn net.Conn, txn *transaction) error {
	client := bufio.NewReader(conn)

	line, err := client.ReadString('\n')
	if line == "" {
		if errors.Is(err, io.EOF) {
			return ErrNoRequest
		}
		return peerIO("reading request line", err)
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		txn.cacheStatus.Forward(CacheStatusFwdBypass)
		return p.clientError(conn, txn, http.StatusBadRequest,
			"Proxy could not parse the request line", strings.TrimSpace(line), ErrMalformedRequestLine)
	}

	method, target := fields[0], fields[1]
	txn.entry.Method = method
	txn.entry.Target = target
	txn.log = txn.log.With().Str("method", method).Str("target", target).Logger()
	txn.log.Trace().Msg("Incoming request")

	if !strings.EqualFold(method, http.MethodGet) {
		txn.cacheStatus.Forward(CacheStatusFwdBypass)
		return p.clientError(conn, txn, http.StatusNotImplemented,
			"Proxy does not implement this method", method, ErrUnsupportedMethod)
	}

	if payload, ok := p.cache.Get(target); ok {
		txn.cacheStatus.Hit()
		return p.sendStoredResponse(conn, txn, payload)
	}
	txn.cacheStatus.Forward(CacheStatusFwdUriMiss)

	uri, err := proxyuri.Parse(target)
	if err != nil {
		return p.clientError(conn, txn, http.StatusBadRequest,
			"Proxy could not parse the URI", target, err)
	}

	req, err := requestbuilder.Build(uri.Host, uri.Path, client)
	if err != nil {
		return peerIO("reading request headers", err)
	}

	upstream, err := p.dial(ctx, "tcp", uri.Addr())
	if err != nil {
		return p.clientError(conn, txn, http.StatusBadGateway,
			"Proxy could not connect to end server", uri.Host, fmt.Errorf("%w: %w", ErrUpstreamConnect, err))
	}
	defer upstream.Close()
	txn.log.Trace().Str("origin", uri.Addr()).Msg("Connected to origin")

	if _, err := upstream.Write(req); err != nil {
		return peerIO("writing request to origin", err)
	}

	return p.relay(conn, upstream, txn)
}

func (p *Proxy) sendStoredResponse(w io.Writer, txn *transaction, payload []byte) error {
	txn.entry.Status = tee.StatusCode(payload)
	n, err := w.Write(payload)
	txn.entry.Bytes = int64(n)
	if err != nil {
		return peerIO("writing cached response", err)
	}
	txn.log.Trace().Msgf("Wrote cached response (%d bytes)", n)
	return nil
}

// relay streams the origin response to the client and stores it if it is small enough.
func (p *Proxy) relay(client io.Writer, upstream io.Reader, txn *transaction) error {
	rs := tee.NewResponseSaver(client, p.maxObjectSize)
	_, err := rs.Relay(upstream, relayChunkSize)
	txn.entry.Bytes = rs.Written()
	txn.entry.Status = rs.StatusCode()
	if err != nil {
		txn.cacheStatus.Detail("incomplete")
		return peerIO("relaying response", err)
	}

	if err := rs.Storable(); err != nil {
		switch {
		case errors.Is(err, tee.ErrOversized):
			txn.cacheStatus.Detail("oversized")
		case errors.Is(err, tee.ErrEmpty):
			txn.cacheStatus.Detail("empty")
		}
		txn.log.Trace().Err(err).Msg("Not caching response")
		return nil
	}

	if err := p.cache.Put(txn.entry.Target, rs.Response()); err != nil {
		txn.log.Error().Err(err).Msg("Could not write to cache")
		return nil
	}
	txn.cacheStatus.Stored()
	txn.log.Trace().Msgf("Wrote to cache (%d bytes)", rs.Written())
	return nil
}

// clientError sends an error page and returns err, the reason for it.
func (p *Proxy) clientError(w io.Writer, txn *transaction, code int, longMsg, cause string, err error) error {
	txn.entry.Status = code
	if werr := clienterror.Write(w, code, http.StatusText(code), longMsg, cause); werr != nil {
		txn.log.Error().Err(werr).Msg("Could not write error page to client")
	}
	return err
}

func (p *Proxy) finish(txn *transaction) {
	txn.entry.Duration = time.Since(txn.entry.StartedAt)
	txn.entry.CacheStatus = txn.cacheStatus.String()
	if txn.err != nil {
		txn.entry.Error = txn.err.Error()
	}

	var ev *zerolog.Event
	switch {
	case errors.Is(txn.err, ErrNoRequest):
		ev = txn.log.Trace()
	case errors.Is(txn.err, ErrPeerIO):
		ev = txn.log.Error()
	default:
		ev = txn.log.Debug()
	}
	ev.Err(txn.err).
		Int("status", txn.entry.Status).
		Str("cache", txn.entry.CacheStatus).
		Int64("bytes", txn.entry.Bytes).
		Dur("duration", txn.entry.Duration).
		Msg("Transaction done")

	if err := p.journal.Record(txn.entry); err != nil {
		txn.log.Error().Err(err).Msg("Could not record transaction")
	}
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
