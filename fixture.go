package httpstub

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

// The fixture types mirror the YAML stub fixture format:
//
//	stubs:
//	  - match:
//	      method: GET
//	      url: "https://api.example.com/*"
//	    respond:
//	      status: 200
//	      contentType: application/json
//	      body: '{"ok":true}'
//	  - match:
//	      path: /slow
//	    respond:
//	      status: 200
//	      body: "....."
//	      chunkSize: 2
//	  - match:
//	      host: broken.example.com
//	    fail: connection refused
type fixtureFile struct {
	Stubs []fixtureStub `yaml:"stubs"`
}

type fixtureStub struct {
	Match   fixtureMatch    `yaml:"match"`
	Respond *fixtureRespond `yaml:"respond"`
	Fail    string          `yaml:"fail"`
}

type fixtureMatch struct {
	Method string            `yaml:"method"`
	URL    string            `yaml:"url"`
	Host   string            `yaml:"host"`
	Path   string            `yaml:"path"`
	Header map[string]string `yaml:"header"`
	Query  map[string]string `yaml:"query"`
}

type fixtureRespond struct {
	Status      int               `yaml:"status"`
	ContentType string            `yaml:"contentType"`
	Header      map[string]string `yaml:"header"`
	Body        string            `yaml:"body"`
	ChunkSize   int               `yaml:"chunkSize"`
}

// Load reads a YAML stub fixture from r and registers its stubs, in file
// order, in the given registry. It returns the registered stubs so the
// caller can remove them individually later. On error nothing is registered.
func Load(r io.Reader, reg *Registry) ([]*Stub, error) {
	var file fixtureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("httpstub: decoding fixture: %w", err)
	}

	type entry struct {
		m Matcher
		b Builder
	}
	entries := make([]entry, len(file.Stubs))
	for i, fs := range file.Stubs {
		b, err := fs.builder()
		if err != nil {
			return nil, fmt.Errorf("httpstub: fixture stub #%d: %w", i, err)
		}
		entries[i] = entry{m: fs.Match.matcher(), b: b}
	}

	stubs := make([]*Stub, len(entries))
	for i, e := range entries {
		stubs[i] = reg.AddStub(e.m, e.b)
	}
	return stubs, nil
}

// LoadFile reads the named YAML stub fixture and registers its stubs in the
// given registry, see Load.
func LoadFile(name string, reg *Registry) ([]*Stub, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("httpstub: opening fixture: %w", err)
	}
	defer f.Close()
	return Load(f, reg)
}

// matcher translates the match block into a Matcher. An empty
// block matches every request.
func (fm fixtureMatch) matcher() Matcher {
	var mm []Matcher
	if fm.Method != "" {
		mm = append(mm, MatchMethod(fm.Method))
	}
	if fm.URL != "" {
		mm = append(mm, MatchURL(fm.URL))
	}
	if fm.Host != "" {
		mm = append(mm, MatchHost(fm.Host))
	}
	if fm.Path != "" {
		mm = append(mm, MatchPath(fm.Path))
	}
	for k, v := range fm.Header {
		mm = append(mm, MatchHeader(k, v))
	}
	for k, v := range fm.Query {
		mm = append(mm, MatchQuery(k, v))
	}
	return MatchAll(mm...)
}

// builder translates the respond/fail block into a Builder.
func (fs fixtureStub) builder() (Builder, error) {
	if fs.Fail != "" && fs.Respond != nil {
		return nil, errors.New("respond and fail are mutually exclusive")
	}
	if fs.Fail != "" {
		return Fail(errors.New(fs.Fail)), nil
	}
	if fs.Respond == nil {
		return nil, errors.New("respond or fail is required")
	}

	fr := fs.Respond
	res := Response{StatusCode: fr.Status, Header: Header{}}
	if res.StatusCode == 0 {
		res.StatusCode = 200
	}
	for k, v := range fr.Header {
		res.Header[k] = []string{v}
	}

	var download Download = NoContent{}
	if fr.Body != "" {
		if _, ok := res.Header["Content-Type"]; !ok {
			contentType := fr.ContentType
			if contentType == "" {
				contentType = textContentType
			}
			res.Header["Content-Type"] = []string{contentType}
		}
		data := []byte(fr.Body)
		if fr.ChunkSize > 0 {
			download = StreamContent{Data: data, ChunkSize: fr.ChunkSize}
		} else {
			download = Content{Data: data}
		}
	}

	outcome := Success{Response: res, Download: download}
	return func(*http.Request) Outcome { return outcome }, nil
}
