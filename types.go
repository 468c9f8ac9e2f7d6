package httpstub

import (
	"net/http"

	"github.com/google/uuid"
)

// The Matcher type is a predicate that reports whether a stub applies to an
// outgoing HTTP request. A Matcher must be deterministic and side-effect free
// for a given request; it is invoked every time the registry resolves a
// request and may be invoked concurrently from multiple goroutines.
type Matcher func(r *http.Request) bool

// The Builder type computes the outcome that a stub produces for a request.
// A Builder may capture fixed response data or derive it from the request.
// For testability builders should be deterministic, though this is not
// enforced.
type Builder func(r *http.Request) Outcome

// A Stub pairs a Matcher with a Builder under a unique identity. Stubs are
// created by a Registry's AddStub and live in the registry until removed.
// Two stubs are considered equal iff their identities are equal; the matcher
// and builder are intentionally never compared.
type Stub struct {
	id    uuid.UUID
	match Matcher
	build Builder
}

// ID returns the stub's unique identity in string form.
func (s *Stub) ID() string { return s.id.String() }

// The Outcome type is the result of invoking a stub's Builder. It is a sealed
// union: the only implementations are Failure and Success, and consumers are
// expected to type switch over them exhaustively.
type Outcome interface{ outcome() }

// Failure is an Outcome that fails the request with the carried error.
type Failure struct {
	Err error
}

// Success is an Outcome that answers the request with the carried response
// metadata and download payload.
type Success struct {
	Response Response
	Download Download
}

func (Failure) outcome() {}
func (Success) outcome() {}

// compiler check
var (
	_ Outcome = Failure{}
	_ Outcome = Success{}
)

// The Download type describes how a successful outcome's body is delivered.
// It is a sealed union: the only implementations are NoContent, Content and
// StreamContent.
type Download interface{ download() }

// NoContent is a Download with no body at all.
type NoContent struct{}

// Content is a Download delivered to the consumer in a single shot.
type Content struct {
	Data []byte
}

// StreamContent is a Download delivered to the consumer in consecutive
// chunks of at most ChunkSize bytes, paced by the registry's chunk delay.
type StreamContent struct {
	Data      []byte
	ChunkSize int
}

func (NoContent) download()     {}
func (Content) download()       {}
func (StreamContent) download() {}

// compiler check
var (
	_ Download = NoContent{}
	_ Download = Content{}
	_ Download = StreamContent{}
)

// The Response type holds the metadata of a stubbed HTTP response. The body
// is carried separately by the outcome's Download.
type Response struct {
	// The HTTP status code of the response.
	StatusCode int
	// The HTTP headers of the response.
	Header Header
}

// A Header represents the key-value pairs in an HTTP header.
type Header map[string][]string

// clone returns a deep copy of the header, or an empty
// non-nil header if h is nil.
func (h Header) clone() Header {
	out := make(Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// The CachePolicy type tells the consumer whether a delivered response may
// be cached. Stubbed responses are always delivered with CacheNotAllowed.
type CachePolicy int

const (
	// CacheNotAllowed indicates the response must not be cached.
	CacheNotAllowed CachePolicy = iota
	// CacheAllowed indicates the response may be cached.
	CacheAllowed
)

// The Consumer interface is the callback surface through which a delivery
// engine reports the outcome of a stubbed request. For a single request the
// engine invokes the callbacks strictly in order: ResponseReceived first,
// then zero or more DataLoaded calls, then exactly one of Finished or
// Failed. Failed may also be the only call, when no response was produced.
type Consumer interface {
	// ResponseReceived delivers the response metadata.
	ResponseReceived(res Response, policy CachePolicy)
	// DataLoaded delivers the next portion of the response body. The byte
	// slice must not be retained past the call.
	DataLoaded(p []byte)
	// Finished signals that the response body is complete.
	Finished()
	// Failed signals that the request failed with the given error.
	Failed(err error)
}
