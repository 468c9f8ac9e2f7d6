package httpstub

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
)

// An Interceptor is the hook surface handed to the host networking stack: it
// answers whether a request can be served from the registry and, for those
// that can, runs a delivery that reports the stubbed outcome through the
// consumer callbacks. One Interceptor serves any number of concurrent
// requests; every request gets its own delivery.
type Interceptor struct {
	reg *Registry

	mu     sync.Mutex
	active map[*http.Request]*Delivery
}

// NewInterceptor returns an Interceptor backed by the given registry.
func NewInterceptor(reg *Registry) *Interceptor {
	return &Interceptor{reg: reg, active: make(map[*http.Request]*Delivery)}
}

// CanHandle reports whether a stub is currently registered for the request.
func (ic *Interceptor) CanHandle(r *http.Request) bool {
	return ic.reg.Resolve(r) != nil
}

// StartHandling resolves the request against the registry, invokes the
// matching stub's builder and delivers the resulting outcome to the given
// consumer. If no stub matches — the registry may have changed since a
// CanHandle call — the consumer is failed with an UnmatchedError. The
// delivery stays registered with the interceptor until it terminates so
// StopHandling can reach it.
func (ic *Interceptor) StartHandling(r *http.Request, c Consumer) {
	stub := ic.reg.Resolve(r)
	if stub == nil {
		ic.reg.log.Debug().Str("method", r.Method).Stringer("url", r.URL).Msg("request unmatched")
		c.Failed(&UnmatchedError{Method: r.Method, URL: r.URL.String()})
		return
	}
	ic.reg.log.Debug().Str("stub", stub.ID()).Str("method", r.Method).Stringer("url", r.URL).Msg("request matched")

	d := NewDelivery(r, stub.build(r), c, Config{ChunkDelay: ic.reg.delay, Log: &ic.reg.log})
	d.onDone = func() {
		ic.mu.Lock()
		delete(ic.active, r)
		ic.mu.Unlock()
	}

	ic.mu.Lock()
	ic.active[r] = d
	ic.mu.Unlock()

	d.Deliver()
}

// StopHandling forwards a stop request to the delivery serving the given
// request, if one is still running. See Delivery.Stop for the single-shot
// semantics.
func (ic *Interceptor) StopHandling(r *http.Request) {
	ic.mu.Lock()
	d := ic.active[r]
	ic.mu.Unlock()

	if d != nil {
		d.Stop()
	}
}

// A Transport is an http.RoundTripper that serves requests from a stub
// registry. Requests no stub matches are handed to the Next round tripper;
// with a nil Next they fail with an UnmatchedError instead.
type Transport struct {
	// The Interceptor serving stubbed requests.
	Interceptor *Interceptor
	// The round tripper for requests no stub matches.
	Next http.RoundTripper
}

// compiler check
var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements the http.RoundTripper interface. The consumer
// callback sequence of a matching stub is adapted into an *http.Response
// whose body streams chunked downloads as they are emitted. Cancelling the
// request's context forwards a stop request to the delivery.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := r.Context().Err(); err != nil {
		return nil, err
	}
	if !t.Interceptor.CanHandle(r) {
		if t.Next != nil {
			return t.Next.RoundTrip(r)
		}
		return nil, &UnmatchedError{Method: r.Method, URL: r.URL.String()}
	}

	pr, pw := io.Pipe()
	c := &pipeConsumer{
		req:  r,
		pr:   pr,
		pw:   pw,
		resc: make(chan *http.Response, 1),
		errc: make(chan error, 1),
	}

	// the delivery blocks on the pipe once the caller owns the response
	// body, so it must run off the RoundTrip goroutine
	go t.Interceptor.StartHandling(r, c)

	select {
	case res := <-c.resc:
		return res, nil
	case err := <-c.errc:
		return nil, err
	case <-r.Context().Done():
		t.Interceptor.StopHandling(r)
		// unblock a delivery that is mid-write
		_ = pr.CloseWithError(r.Context().Err())
		return nil, r.Context().Err()
	}
}

// pipeConsumer adapts the Consumer callback surface to the *http.Response
// and error values expected from an http.RoundTripper. Body bytes flow
// through an io.Pipe so streamed downloads reach the caller chunk by chunk.
type pipeConsumer struct {
	req *http.Request
	pr  *io.PipeReader
	pw  *io.PipeWriter

	resc chan *http.Response
	errc chan error

	sawResponse atomic.Bool
}

// compiler check
var _ Consumer = (*pipeConsumer)(nil)

func (c *pipeConsumer) ResponseReceived(res Response, _ CachePolicy) {
	hr := &http.Response{
		Status:        fmt.Sprintf("%d %s", res.StatusCode, http.StatusText(res.StatusCode)),
		StatusCode:    res.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header(res.Header.clone()),
		Body:          c.pr,
		ContentLength: contentLength(res.Header),
		Request:       c.req,
	}
	c.sawResponse.Store(true)
	c.resc <- hr
}

func (c *pipeConsumer) DataLoaded(p []byte) {
	_, _ = c.pw.Write(p)
}

func (c *pipeConsumer) Finished() {
	_ = c.pw.Close()
}

func (c *pipeConsumer) Failed(err error) {
	// a failure after the response was handed out can only be surfaced
	// through the body
	if c.sawResponse.Load() {
		_ = c.pw.CloseWithError(err)
		return
	}
	c.errc <- err
}

// contentLength reads a Content-Length header value, or -1 if unknown.
func contentLength(h Header) int64 {
	vv := h["Content-Length"]
	if len(vv) == 0 {
		return -1
	}
	n, err := strconv.ParseInt(vv[0], 10, 64)
	if err != nil {
		return -1
	}
	return n
}
