package httpstub

import (
	"fmt"
	"net/http"

	"github.com/tidwall/sjson"
)

// Fail returns a Builder that fails every request with the given error. The
// error is handed to the consumer unchanged.
func Fail(err error) Builder {
	return func(r *http.Request) Outcome {
		return Failure{Err: err}
	}
}

// NoBody returns a Builder that answers every request with the given status
// code and no body.
func NoBody(status int) Builder {
	return func(r *http.Request) Outcome {
		return Success{
			Response: Response{StatusCode: status, Header: Header{}},
			Download: NoContent{},
		}
	}
}

// Reply returns a Builder that answers every request with the given status
// code and body, delivered in a single shot. The response's Content-Type
// header is taken from the body.
func Reply(status int, body Body) Builder {
	return ReplyHeader(status, nil, body)
}

// ReplyHeader is like Reply but also sets the given headers on the response.
// A Content-Type present in the header takes precedence over the body's.
func ReplyHeader(status int, header Header, body Body) Builder {
	return func(r *http.Request) Outcome {
		res, data, err := makeResponse(status, header, body)
		if err != nil {
			return Failure{Err: err}
		}
		return Success{Response: res, Download: Content{Data: data}}
	}
}

// Stream returns a Builder that answers every request with the given status
// code and body, delivered to the consumer in consecutive chunks of at most
// chunkSize bytes with a pacing delay between chunks.
func Stream(status int, body Body, chunkSize int) Builder {
	return func(r *http.Request) Outcome {
		res, data, err := makeResponse(status, nil, body)
		if err != nil {
			return Failure{Err: err}
		}
		return Success{Response: res, Download: StreamContent{Data: data, ChunkSize: chunkSize}}
	}
}

// JSONTemplate returns a Builder that synthesizes a JSON response from the
// given base document. For every request the vars func is consulted and each
// returned path-value pair is set into the document using
// github.com/tidwall/sjson path syntax, e.g.
//
//	JSONTemplate(`{"user":{},"ok":true}`, func(r *http.Request) map[string]interface{} {
//		return map[string]interface{}{"user.name": r.URL.Query().Get("name")}
//	})
//
// With a nil vars func the base document is served as is.
func JSONTemplate(base string, vars func(r *http.Request) map[string]interface{}) Builder {
	return func(r *http.Request) Outcome {
		doc := base
		if vars != nil {
			for path, value := range vars(r) {
				out, err := sjson.Set(doc, path, value)
				if err != nil {
					return Failure{Err: fmt.Errorf("httpstub: template path %q: %w", path, err)}
				}
				doc = out
			}
		}
		res, data, err := makeResponse(200, nil, Raw(jsonContentType, []byte(doc)))
		if err != nil {
			return Failure{Err: err}
		}
		return Success{Response: res, Download: Content{Data: data}}
	}
}

// makeResponse assembles the response metadata and body bytes shared by the
// success builders.
func makeResponse(status int, header Header, body Body) (Response, []byte, error) {
	h := header.clone()
	var data []byte
	if body != nil {
		bs, err := bodyBytes(body)
		if err != nil {
			return Response{}, nil, fmt.Errorf("httpstub: encoding %T body: %w", body, err)
		}
		data = bs
		if _, ok := h["Content-Type"]; !ok && body.ContentType() != "" {
			h["Content-Type"] = []string{body.ContentType()}
		}
	}
	return Response{StatusCode: status, Header: h}, data, nil
}
