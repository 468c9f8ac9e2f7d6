package httpstub

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"log"

	"github.com/frk/form"
)

// The Body type represents the contents of a stubbed HTTP response body.
type Body interface {
	// Value returns the underlying value of the Body interface.
	Value() interface{}
	// Reader returns an io.Reader that can be used to read the contents of the body.
	Reader() (io.Reader, error)
	// ContentType returns the media type (MIME) that describes the data contained in the body.
	ContentType() string
}

// JSON wraps the given value v and returns a Body that represents the value as
// json encoded data. The resulting Body uses encoding/json to encode the given
// value, see the encoding/json documentation for more details.
func JSON(v interface{}) Body { return jsonbody{v} }

// XML wraps the given value v and returns a Body that represents the value as
// xml encoded data. The resulting Body uses encoding/xml to encode the given
// value, see the encoding/xml documentation for more details.
func XML(v interface{}) Body { return xmlbody{v} }

// Form wraps the given value v and returns a Body that represents the value as
// form encoded data. The resulting Body uses github.com/frk/form to encode the
// given value, see the package's documentation for more details.
func Form(v interface{}) Body { return formbody{v} }

// Text wraps the given value v and returns a Body that represents the value as plain text.
func Text(v string) Body { return textbody{v} }

// Raw wraps the given bytes and returns a Body that delivers them untouched
// under the given media type.
func Raw(contentType string, v []byte) Body { return rawbody{t: contentType, v: v} }

////////////////////////////////////////////////////////////////////////////////
// JSON Body
////////////////////////////////////////////////////////////////////////////////

// jsonbody implements the Body interface.
type jsonbody struct{ v interface{} }

const jsonContentType = "application/json"

// Value returns the underlying value of the jsonbody.
func (b jsonbody) Value() interface{} { return b.v }

// ContentType returns the media type (MIME) of the jsonbody which
// in this case will always be "application/json".
func (b jsonbody) ContentType() string { return jsonContentType }

// Reader returns an io.Reader that can be used to read the jsonbody's underlying
// value as json encoded data. Reader uses encoding/json's Marshal func to encode the
// underlying value, see the documentation on encoding/json's Marshal for more details.
func (b jsonbody) Reader() (io.Reader, error) {
	bs, err := json.Marshal(b.v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(bs), nil
}

// for debugging
func (b jsonbody) String() string {
	bs, err := json.MarshalIndent(b.v, "", "  ")
	if err != nil {
		log.Println("frk/httpstub:", err)
		return "[JSON ERROR]"
	}
	return string(bs)
}

////////////////////////////////////////////////////////////////////////////////
// XML Body
////////////////////////////////////////////////////////////////////////////////

// xmlbody implements the Body interface.
type xmlbody struct{ v interface{} }

const xmlContentType = "application/xml"

// Value returns the underlying value of the xmlbody.
func (b xmlbody) Value() interface{} { return b.v }

// ContentType returns the media type (MIME) of the xmlbody which
// in this case will always be "application/xml".
func (b xmlbody) ContentType() string { return xmlContentType }

// Reader returns an io.Reader that can be used to read the xmlbody's underlying
// value as xml encoded data. Reader uses encoding/xml's Marshal func to encode the
// underlying value, see the documentation on encoding/xml's Marshal for more details.
func (b xmlbody) Reader() (io.Reader, error) {
	bs, err := xml.Marshal(b.v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(bs), nil
}

////////////////////////////////////////////////////////////////////////////////
// Form Body
////////////////////////////////////////////////////////////////////////////////

// formbody implements the Body interface.
type formbody struct{ v interface{} }

const formContentType = "application/x-www-form-urlencoded"

// Value returns the underlying value of the formbody.
func (b formbody) Value() interface{} { return b.v }

// ContentType returns the media type (MIME) of the formbody which
// in this case will always be "application/x-www-form-urlencoded".
func (b formbody) ContentType() string { return formContentType }

// Reader returns an io.Reader that can be used to read the formbody's underlying
// value as form encoded data. Reader uses github.com/frk/form's Marshal func to
// encode the underlying value, see the documentation on that package's Marshal
// for more details.
func (b formbody) Reader() (io.Reader, error) {
	bs, err := form.Marshal(b.v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(bs), nil
}

// for debugging
func (b formbody) String() string {
	bs, err := form.Marshal(b.v)
	if err != nil {
		log.Println("frk/httpstub:", err)
		return "[FORM ERROR]"
	}
	return string(bs)
}

////////////////////////////////////////////////////////////////////////////////
// Text Body
////////////////////////////////////////////////////////////////////////////////

// textbody implements the Body interface.
type textbody struct{ v string }

const textContentType = "text/plain"

// Value returns the underlying value of the textbody.
func (b textbody) Value() interface{} { return b.v }

// ContentType returns the media type (MIME) of the textbody which
// in this case will always be "text/plain".
func (b textbody) ContentType() string { return textContentType }

// Reader returns an io.Reader that can be used to read the textbody's underlying value.
func (b textbody) Reader() (io.Reader, error) {
	return bytes.NewReader([]byte(b.v)), nil
}

// for debugging
func (b textbody) String() string {
	return b.v
}

////////////////////////////////////////////////////////////////////////////////
// Raw Body
////////////////////////////////////////////////////////////////////////////////

// rawbody implements the Body interface.
type rawbody struct {
	t string
	v []byte
}

// Value returns the underlying value of the rawbody.
func (b rawbody) Value() interface{} { return b.v }

// ContentType returns the media type (MIME) the rawbody was created with.
func (b rawbody) ContentType() string { return b.t }

// Reader returns an io.Reader that can be used to read the rawbody's bytes.
func (b rawbody) Reader() (io.Reader, error) {
	return bytes.NewReader(b.v), nil
}

// bodyBytes reads the full contents of the given body.
func bodyBytes(b Body) ([]byte, error) {
	r, err := b.Reader()
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
