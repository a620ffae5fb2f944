package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestRemoveBlanks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "top level blank",
			body: `{"snerberd":{"name":"","length":150}}`,
			want: `{"snerberd":{"length":150}}`,
		},
		{
			name: "nested blanks",
			body: `{"snerberd":{"name":"Custom","meta":{"color":"","size":"L"}}}`,
			want: `{"snerberd":{"name":"Custom","meta":{"size":"L"}}}`,
		},
		{
			name: "objects inside arrays",
			body: `{"items":[{"a":""},{"b":"x"}],"tags":["",""]}`,
			want: `{"items":[{},{"b":"x"}],"tags":["",""]}`,
		},
		{
			name: "whitespace is not blank",
			body: `{"snerberd":{"name":" "}}`,
			want: `{"snerberd":{"name":" "}}`,
		},
		{
			name: "false and zero survive",
			body: `{"snerberd":{"channelBindings":false,"length":0,"owner":null}}`,
			want: `{"snerberd":{"channelBindings":false,"length":0,"owner":null}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := serveBlanks(t, tt.body)
			assertJSONEqual(t, got, tt.want)
		})
	}
}

func TestRemoveBlanks_NumbersKeepPrecision(t *testing.T) {
	t.Parallel()

	got := serveBlanks(t, `{"snerberd":{"length":158.25,"big":12345678901234567890}}`)
	if !strings.Contains(got, "12345678901234567890") || !strings.Contains(got, "158.25") {
		t.Errorf("numbers were altered: %s", got)
	}
}

func TestRemoveBlanks_NonJSONPassesThrough(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"snerberd":`, `"just a string"`, `not json`, `{"a":""} trailing`} {
		if got := serveBlanks(t, body); got != body {
			t.Errorf("body %q was rewritten to %q", body, got)
		}
	}
}

func TestRemoveBlanks_UpdatesContentLength(t *testing.T) {
	t.Parallel()

	var gotLen int64
	handler := RemoveBlanks(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLen = r.ContentLength
	}))

	req := httptest.NewRequest(http.MethodPatch, "/snowboards/1", strings.NewReader(`{"a":"","b":1}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotLen != int64(len(`{"b":1}`)) {
		t.Errorf("ContentLength = %d, want %d", gotLen, len(`{"b":1}`))
	}
}

func serveBlanks(t *testing.T, body string) string {
	t.Helper()

	var got string
	handler := RemoveBlanks(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		got = string(b)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/snerberds/1", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func assertJSONEqual(t *testing.T, got, want string) {
	t.Helper()

	var g, w any
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("got invalid JSON %q: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want invalid JSON %q: %v", want, err)
	}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("got %s, want %s", got, want)
	}
}
