package httpstub

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// A byteRange is a window into a response body derived from a request's
// Range header. off is the zero-based offset of the first byte and n the
// number of bytes; after clamping against the body, off+n never exceeds the
// body's length.
type byteRange struct {
	off int64
	n   int64
}

// parseByteRange parses a Range request header of the form
// "bytes=<start>-<end>" with an inclusive, zero-based end. It reports ok as
// false for an absent header, for any other header form and for non-numeric
// or inverted bounds; in all of those cases the caller serves the full
// content. Degrading malformed headers to "no range" is deliberate: a bad
// header from the code under test should not take the stub down.
func parseByteRange(h string) (byteRange, bool) {
	spec, ok := strings.CutPrefix(h, "bytes=")
	if !ok {
		return byteRange{}, false
	}
	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return byteRange{}, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false
	}
	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return byteRange{}, false
	}
	return byteRange{off: start, n: end - start + 1}, true
}

// applyRange conditionally rewrites a success outcome for the Range header
// of the given request. When the request carries a well-formed range, the
// returned body is the requested slice clamped to the body's bounds and the
// returned response carries updated Content-Length and Content-Range headers
// with every other header, the status code and everything else preserved.
// Without a range, or with a range that lies entirely outside the body,
// response and body are returned untouched.
func applyRange(r *http.Request, res Response, body []byte) (Response, []byte) {
	br, ok := parseByteRange(r.Header.Get("Range"))
	if !ok {
		return res, body
	}

	full := int64(len(body))
	if br.off >= full {
		return res, body
	}
	if br.off+br.n > full {
		br.n = full - br.off
	}
	sliced := body[br.off : br.off+br.n]

	h := res.Header.clone()
	h["Content-Length"] = []string{strconv.FormatInt(br.n, 10)}
	h["Content-Range"] = []string{fmt.Sprintf("bytes %d-%d/%d", br.off, br.off+br.n-1, full)}
	return Response{StatusCode: res.StatusCode, Header: h}, sliced
}
