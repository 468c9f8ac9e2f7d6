package httpstub

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/frk/compare"
)

func Test_parseByteRange(t *testing.T) {
	tests := []struct {
		header string
		want   byteRange
		ok     bool
	}{
		{"bytes=10-19", byteRange{off: 10, n: 10}, true},
		{"bytes=0-0", byteRange{off: 0, n: 1}, true},
		{"bytes=0-99", byteRange{off: 0, n: 100}, true},

		// absent header means full content
		{"", byteRange{}, false},

		// only the bytes=<start>-<end> subset is recognized
		{"bytes=10-", byteRange{}, false},
		{"bytes=-10", byteRange{}, false},
		{"items=10-19", byteRange{}, false},
		{"10-19", byteRange{}, false},

		// malformed bounds degrade to full content, they never fail
		{"bytes=a-b", byteRange{}, false},
		{"bytes=10-x", byteRange{}, false},
		{"bytes=19-10", byteRange{}, false},
		{"bytes=", byteRange{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := parseByteRange(tt.header)
			if ok != tt.ok {
				t.Fatalf("got ok=%t, want %t", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func Test_applyRange(t *testing.T) {
	full := make([]byte, 100)
	for i := range full {
		full[i] = byte(i)
	}
	res := Response{
		StatusCode: 200,
		Header:     Header{"Content-Type": {"application/octet-stream"}, "X-Custom": {"kept"}},
	}

	newreq := func(rangeHeader string) *http.Request {
		r, err := http.NewRequest("GET", "https://cdn.example.com/blob", nil)
		if err != nil {
			t.Fatal(err)
		}
		if rangeHeader != "" {
			r.Header.Set("Range", rangeHeader)
		}
		return r
	}

	t.Run("slices_and_annotates", func(t *testing.T) {
		gotRes, gotBody := applyRange(newreq("bytes=10-19"), res, full)

		if !bytes.Equal(gotBody, full[10:20]) {
			t.Errorf("got body %v, want bytes [10,20)", gotBody)
		}
		wantHeader := Header{
			"Content-Type":   {"application/octet-stream"},
			"X-Custom":       {"kept"},
			"Content-Length": {"10"},
			"Content-Range":  {"bytes 10-19/100"},
		}
		if err := compare.Compare(gotRes.Header, wantHeader); err != nil {
			t.Error(err)
		}
		if gotRes.StatusCode != 200 {
			t.Errorf("got status %d, want 200", gotRes.StatusCode)
		}
	})

	t.Run("no_range_header", func(t *testing.T) {
		gotRes, gotBody := applyRange(newreq(""), res, full)

		if !bytes.Equal(gotBody, full) {
			t.Error("got modified body, want full content")
		}
		if _, ok := gotRes.Header["Content-Range"]; ok {
			t.Error("got a Content-Range header, want none")
		}
	})

	t.Run("end_clamped_to_body", func(t *testing.T) {
		gotRes, gotBody := applyRange(newreq("bytes=90-150"), res, full)

		if !bytes.Equal(gotBody, full[90:]) {
			t.Errorf("got %d body bytes, want bytes [90,100)", len(gotBody))
		}
		if err := compare.Compare(gotRes.Header["Content-Range"], []string{"bytes 90-99/100"}); err != nil {
			t.Error(err)
		}
		if err := compare.Compare(gotRes.Header["Content-Length"], []string{"10"}); err != nil {
			t.Error(err)
		}
	})

	t.Run("offset_past_body", func(t *testing.T) {
		// a range that lies entirely outside the body serves full content
		gotRes, gotBody := applyRange(newreq("bytes=100-110"), res, full)

		if !bytes.Equal(gotBody, full) {
			t.Error("got modified body, want full content")
		}
		if _, ok := gotRes.Header["Content-Range"]; ok {
			t.Error("got a Content-Range header, want none")
		}
	})

	t.Run("original_header_not_mutated", func(t *testing.T) {
		_, _ = applyRange(newreq("bytes=10-19"), res, full)

		if _, ok := res.Header["Content-Range"]; ok {
			t.Error("applyRange mutated the outcome's header")
		}
	})
}
