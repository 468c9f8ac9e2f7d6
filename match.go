package httpstub

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// MatchAll returns a Matcher that reports true iff every one of the given
// matchers accepts the request. With no arguments it accepts every request.
func MatchAll(mm ...Matcher) Matcher {
	return func(r *http.Request) bool {
		for _, m := range mm {
			if !m(r) {
				return false
			}
		}
		return true
	}
}

// MatchAny returns a Matcher that reports true iff at least one of the given
// matchers accepts the request.
func MatchAny(mm ...Matcher) Matcher {
	return func(r *http.Request) bool {
		for _, m := range mm {
			if m(r) {
				return true
			}
		}
		return false
	}
}

// MatchNone returns a Matcher that reports true iff none of the given
// matchers accepts the request.
func MatchNone(mm ...Matcher) Matcher {
	any := MatchAny(mm...)
	return func(r *http.Request) bool {
		return !any(r)
	}
}

// MatchMethod returns a Matcher that accepts requests whose HTTP method,
// compared case-insensitively, is one of the given methods.
func MatchMethod(methods ...string) Matcher {
	return func(r *http.Request) bool {
		for _, m := range methods {
			if strings.EqualFold(r.Method, m) {
				return true
			}
		}
		return false
	}
}

// MatchURL returns a Matcher that accepts requests whose full URL matches the
// given pattern. The pattern is a simple glob: a single "*" accepts any URL,
// a leading "*" matches any URL with the given suffix, a trailing "*" matches
// any URL with the given prefix, and anything else must match exactly.
func MatchURL(pattern string) Matcher {
	return func(r *http.Request) bool {
		return glob(r.URL.String(), pattern)
	}
}

// MatchURLPrefix returns a Matcher that accepts requests whose full URL
// starts with the given prefix.
func MatchURLPrefix(prefix string) Matcher {
	return func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.String(), prefix)
	}
}

// MatchURLRegexp returns a Matcher that accepts requests whose full URL
// matches the given regular expression. An expression that does not compile
// matches nothing.
func MatchURLRegexp(expr string) Matcher {
	return func(r *http.Request) bool {
		return matchRegexp(r.URL.String(), expr)
	}
}

// MatchHost returns a Matcher that accepts requests addressed to the given
// host, compared case-insensitively.
func MatchHost(host string) Matcher {
	return func(r *http.Request) bool {
		return strings.EqualFold(r.URL.Host, host)
	}
}

// MatchPath returns a Matcher that accepts requests whose URL path is
// exactly the given path.
func MatchPath(path string) Matcher {
	return func(r *http.Request) bool {
		return r.URL.Path == path
	}
}

// MatchHeader returns a Matcher that accepts requests carrying the given
// header key with exactly the given value.
func MatchHeader(key, value string) Matcher {
	return func(r *http.Request) bool {
		return r.Header.Get(key) == value
	}
}

// MatchHeaderRegexp returns a Matcher that accepts requests whose value for
// the given header key matches the given regular expression. Requests
// without the header match nothing, as does an expression that does not
// compile.
func MatchHeaderRegexp(key, expr string) Matcher {
	return func(r *http.Request) bool {
		v := r.Header.Get(key)
		if v == "" {
			return false
		}
		return matchRegexp(v, expr)
	}
}

// MatchQuery returns a Matcher that accepts requests carrying the given URL
// query parameter with exactly the given value.
func MatchQuery(key, value string) Matcher {
	return func(r *http.Request) bool {
		q := r.URL.Query()
		if _, ok := q[key]; !ok {
			return false
		}
		return q.Get(key) == value
	}
}

// MatchBodyJSON returns a Matcher that accepts requests whose JSON body
// holds the given value at the given gjson path, e.g.
//
//	MatchBodyJSON("user.name", "anne")
//	MatchBodyJSON("items.#", 3)
//
// The value is compared against the string form of the element found at the
// path. The request body is restored after reading so the request remains
// usable. Requests without a body match nothing.
func MatchBodyJSON(path string, value interface{}) Matcher {
	want := fmt.Sprintf("%v", value)
	return func(r *http.Request) bool {
		body := requestBody(r)
		if len(body) == 0 {
			return false
		}
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			return false
		}
		return res.String() == want
	}
}

// requestBody reads the request's body and puts an equivalent
// body back in its place. Returns nil if there is no body.
func requestBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	b, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return nil
	}
	return b
}

// glob matches s against a pattern that may carry a single
// leading or trailing star.
func glob(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	return s == pattern
}

// regexpCache holds compiled regular expressions keyed by their source
// expression so matchers don't recompile on every resolution.
var regexpCache sync.Map // string -> *regexp.Regexp

func matchRegexp(s, expr string) bool {
	if re, ok := regexpCache.Load(expr); ok {
		return re.(*regexp.Regexp).MatchString(s)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	regexpCache.Store(expr, re)
	return re.MatchString(s)
}
