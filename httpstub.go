// Package httpstub provides a way to stub the HTTP requests made by a Go
// program under test: the test registers stubs that recognize outgoing
// requests and substitute deterministic, programmable responses instead of
// performing real network I/O.
//
//	func TestClient(t *testing.T) {
//		stub := httpstub.AddStub(
//			httpstub.MatchURL("https://api.example.com/*"),
//			httpstub.Reply(200, httpstub.JSON(map[string]string{"ok": "true"})),
//		)
//		defer httpstub.RemoveStub(stub)
//
//		// requests through http.DefaultTransport are now answered by the stub
//	}
//
// Stubs are resolved under a last-registered-wins policy: when several stubs
// match the same request the one registered most recently is used. This lets
// a test register a local stub on top of a suite-wide default.
package httpstub

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultChunkDelay is the pause inserted between consecutive chunks of a
// streamed download when the registry's Config does not specify one.
const DefaultChunkDelay = 10 * time.Millisecond

// The Config type holds the optional settings of a Registry.
type Config struct {
	// OnActivate, if set, is invoked exactly once, by the first AddStub
	// call ever made on the registry. It is the place to hook the
	// registry into the host networking stack; the default registry
	// uses it to install the stubbing Transport into
	// http.DefaultTransport.
	OnActivate func()
	// The pause between consecutive chunks of a streamed download.
	// If zero, DefaultChunkDelay is used.
	ChunkDelay time.Duration
	// Log, if set, receives debug events for stub registration,
	// resolution and delivery. If nil, logging is disabled.
	Log *zerolog.Logger
}

// A Registry is an ordered collection of stubs shared by all requests that
// are routed through it. The zero value is not usable; use NewRegistry.
//
// A Registry is safe for concurrent use: mutations and resolution are
// serialized with respect to each other, and resolution calls may run
// concurrently with one another.
type Registry struct {
	mu    sync.RWMutex
	stubs []*Stub

	once       sync.Once
	onActivate func()

	delay time.Duration
	log   zerolog.Logger
}

// NewRegistry returns a new, empty Registry configured with c.
func NewRegistry(c Config) *Registry {
	log := zerolog.Nop()
	if c.Log != nil {
		log = *c.Log
	}
	delay := c.ChunkDelay
	if delay == 0 {
		delay = DefaultChunkDelay
	}
	return &Registry{
		onActivate: c.OnActivate,
		delay:      delay,
		log:        log,
	}
}

// AddStub registers a new stub built from the given matcher and builder and
// returns it. The returned stub's identity can later be used with RemoveStub.
// The stub is appended at the end of the registry, which makes it take
// precedence over every previously registered stub that matches the same
// requests.
//
// The first AddStub call ever made on the registry triggers the registry's
// one-time activation hook; the activation runs exactly once even under
// concurrent first-time registrations.
func (g *Registry) AddStub(m Matcher, b Builder) *Stub {
	s := &Stub{id: uuid.New(), match: m, build: b}

	g.mu.Lock()
	g.stubs = append(g.stubs, s)
	g.mu.Unlock()

	g.once.Do(func() {
		if g.onActivate != nil {
			g.onActivate()
		}
	})

	g.log.Debug().Str("stub", s.ID()).Msg("stub registered")
	return s
}

// RemoveStub removes the stub with the given stub's identity from the
// registry. It is a no-op if no such stub is registered. Only identity is
// compared; other stubs with equivalent matcher or builder behavior are
// left untouched.
func (g *Registry) RemoveStub(s *Stub) {
	if s == nil {
		return
	}

	g.mu.Lock()
	for i := range g.stubs {
		if g.stubs[i].id == s.id {
			g.stubs = append(g.stubs[:i], g.stubs[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	g.log.Debug().Str("stub", s.ID()).Msg("stub removed")
}

// RemoveAllStubs clears the registry. Requests resolved afterwards will fail
// as unmatched until new stubs are registered.
func (g *Registry) RemoveAllStubs() {
	g.mu.Lock()
	g.stubs = nil
	g.mu.Unlock()

	g.log.Debug().Msg("all stubs removed")
}

// Resolve scans the registry from the most recently added stub to the least
// recently added one and returns the first stub whose matcher accepts the
// request, or nil if no stub matches. The most-recent-first order is part of
// the registry's contract; later registrations are assumed to be more
// specific and override earlier ones.
func (g *Registry) Resolve(r *http.Request) *Stub {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for i := len(g.stubs) - 1; i >= 0; i-- {
		if g.stubs[i].match(r) {
			return g.stubs[i]
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Default registry
////////////////////////////////////////////////////////////////////////////////

// defaultRegistry is the process-wide registry used by the package-level
// functions. Its activation hook installs the stubbing Transport into
// http.DefaultTransport.
var defaultRegistry *Registry

func init() {
	defaultRegistry = NewRegistry(Config{OnActivate: Activate})
}

// Default returns the process-wide registry used by the package-level
// AddStub, RemoveStub and RemoveAllStubs functions.
func Default() *Registry { return defaultRegistry }

// AddStub registers a stub in the default registry. The first call also
// installs the stubbing Transport into http.DefaultTransport, see Activate.
func AddStub(m Matcher, b Builder) *Stub {
	return defaultRegistry.AddStub(m, b)
}

// RemoveStub removes the given stub from the default registry.
func RemoveStub(s *Stub) {
	defaultRegistry.RemoveStub(s)
}

// RemoveAllStubs clears the default registry.
func RemoveAllStubs() {
	defaultRegistry.RemoveAllStubs()
}

var (
	activateMu sync.Mutex
	// the transport that was in http.DefaultTransport before Activate,
	// restored by Deactivate; nil while not activated.
	savedTransport http.RoundTripper
)

// Activate replaces http.DefaultTransport with a Transport that routes
// requests through the default registry, falling back to the previous
// transport for requests no stub matches. Activate is idempotent; calling
// it while already active is a no-op. It normally does not need to be
// called directly since the default registry activates itself on the
// first AddStub.
func Activate() {
	activateMu.Lock()
	defer activateMu.Unlock()

	if savedTransport != nil {
		return
	}
	savedTransport = http.DefaultTransport
	http.DefaultTransport = &Transport{
		Interceptor: NewInterceptor(defaultRegistry),
		Next:        savedTransport,
	}
}

// Deactivate restores the http.DefaultTransport that was in place before
// Activate. Registered stubs are kept; a later Activate call will make them
// effective again.
func Deactivate() {
	activateMu.Lock()
	defer activateMu.Unlock()

	if savedTransport == nil {
		return
	}
	http.DefaultTransport = savedTransport
	savedTransport = nil
}
