package httpstub

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/frk/compare"
)

func readallString(r io.Reader) string {
	b, err := io.ReadAll(r)
	if err != nil {
		return err.Error()
	}
	return string(b)
}

type jsonstruct struct {
	A string
	B int
	C *jsonstruct
}

type xmlelem struct {
	A string
	B int
}

type xmlroot struct {
	XMLName xml.Name  `xml:"root"`
	Elems   []xmlelem `xml:"elem"`
}

type formstruct struct {
	A string
	B int
	C []float32
}

func Test_Body_ContentType(t *testing.T) {
	tests := []struct {
		body Body
		want string
	}{
		{JSON(nil), jsonContentType},
		{XML(nil), xmlContentType},
		{Form(nil), formContentType},
		{Text(""), textContentType},
		{Raw("application/octet-stream", nil), "application/octet-stream"},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%T", tt.body)
		t.Run(name, func(t *testing.T) {
			if got := tt.body.ContentType(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_Body_Reader(t *testing.T) {
	tests := []struct {
		body Body
		want string
	}{{
		body: JSON(jsonstruct{A: "foo", B: 84, C: &jsonstruct{A: "bar"}}),
		want: `{"A":"foo","B":84,"C":{"A":"bar","B":0,"C":null}}`,
	}, {
		body: JSON(map[string]interface{}{"ok": true}),
		want: `{"ok":true}`,
	}, {
		body: XML(xmlroot{Elems: []xmlelem{{A: "foo", B: 1}, {A: "bar", B: 2}}}),
		want: `<root><elem><A>foo</A><B>1</B></elem><elem><A>bar</A><B>2</B></elem></root>`,
	}, {
		body: Form(formstruct{A: "foo", B: 84, C: []float32{3.14, 42.0003}}),
		want: `A=foo&B=84&C=3.14&C=42.0003`,
	}, {
		body: Text("foo bar baz"),
		want: `foo bar baz`,
	}, {
		body: Raw("text/html", []byte("<html></html>")),
		want: `<html></html>`,
	}}

	for _, tt := range tests {
		name := fmt.Sprintf("%T", tt.body)
		t.Run(name, func(t *testing.T) {
			r, err := tt.body.Reader()
			if err != nil {
				t.Fatal(err)
			}
			if e := compare.Compare(readallString(r), tt.want); e != nil {
				t.Error(e)
			}
		})
	}
}

func Test_Body_Reader_Error(t *testing.T) {
	// a value that cannot be encoded must surface the encoder's error
	if _, err := JSON(func() {}).Reader(); err == nil {
		t.Error("got nil error, want a json encoding error")
	}
	if _, err := XML(map[string]string{}).Reader(); err == nil {
		t.Error("got nil error, want an xml encoding error")
	}
}

func Test_Reply_EncodingError(t *testing.T) {
	req := testRequest(t, "GET", "https://api.example.com/users")

	// a body that fails to encode turns the outcome into a Failure
	oc := Reply(200, JSON(func() {}))(req)
	if _, ok := oc.(Failure); !ok {
		t.Errorf("got %T, want Failure", oc)
	}
}

func Test_JSONTemplate(t *testing.T) {
	req := testRequest(t, "GET", "https://api.example.com/users?name=anne")

	b := JSONTemplate(`{"user":{},"ok":true}`, func(r *http.Request) map[string]interface{} {
		return map[string]interface{}{"user.name": r.URL.Query().Get("name")}
	})

	oc := b(req)
	s, ok := oc.(Success)
	if !ok {
		t.Fatalf("got %T, want Success", oc)
	}
	data := s.Download.(Content).Data
	if e := compare.Compare(string(data), `{"user":{"name":"anne"},"ok":true}`); e != nil {
		t.Error(e)
	}
	if e := compare.Compare(s.Response.Header["Content-Type"], []string{"application/json"}); e != nil {
		t.Error(e)
	}
}
