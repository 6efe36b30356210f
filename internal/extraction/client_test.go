package extraction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2md/internal/secrets"
	"github.com/pdiddy/pdf2md/pkg/types"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

func newTestClient(t *testing.T, url string, keys map[string]string) *Client {
	t.Helper()
	cfg := types.DefaultConfig().Extraction
	cfg.BaseURL = url
	return New(cfg, secrets.FromMap(keys), nil, zerolog.Nop())
}

func TestExtractSuccess(t *testing.T) {
	var (
		gotAuth   string
		gotFields = map[string]string{}
		gotFile   []byte
		gotName   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		f, hdr, err := r.FormFile("document")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		gotFile, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"api":"2.0","content":{"html":"<h1>Title</h1>","markdown":"# Title\n\n| a | b |"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, map[string]string{"UPSTAGE_API_KEY": "up-123"})
	res := c.Extract(context.Background(), types.Document{Name: "lecture.pdf", Data: samplePDF})

	require.True(t, res.OK(), res.Reason)
	assert.Equal(t, "# Title\n\n| a | b |", res.Text)
	assert.Equal(t, "Bearer up-123", gotAuth)
	assert.Equal(t, "lecture.pdf", gotName)
	assert.Equal(t, samplePDF, gotFile)
	assert.Equal(t, Options, gotFields)
}

func TestExtractReadsFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, samplePDF, 0o644))

	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("document")
		if !assert.NoError(t, err) {
			return
		}
		gotName = hdr.Filename
		fmt.Fprint(w, `{"content":{"markdown":"ok"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, map[string]string{"UPSTAGE_API_KEY": "k"})
	res := c.Extract(context.Background(), types.Document{Path: path})
	require.True(t, res.OK(), res.Reason)
	assert.Equal(t, "notes.pdf", gotName)
}

func TestExtractMissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	res := c.Extract(context.Background(), types.Document{Name: "a.pdf", Data: samplePDF})

	assert.False(t, res.OK())
	assert.Equal(t, types.KindConfiguration, res.Kind)
	assert.Equal(t, "Error: UPSTAGE_API_KEY not found in secrets", res.Reason)
	assert.Zero(t, calls.Load())
}

func TestExtractFailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind types.FailureKind
		wantIn   string
	}{
		{name: "unauthorized", status: 401, body: `{"error":"invalid key"}`, wantKind: types.KindUpstream, wantIn: "401"},
		{name: "server error", status: 500, body: "boom", wantKind: types.KindUpstream, wantIn: "boom"},
		{name: "not json", status: 200, body: "<html>", wantKind: types.KindMalformedResponse, wantIn: "decoding"},
		{name: "missing markdown", status: 200, body: `{"content":{"html":"x"}}`, wantKind: types.KindMalformedResponse, wantIn: "content.markdown"},
		{name: "missing content", status: 200, body: `{}`, wantKind: types.KindMalformedResponse, wantIn: "content.markdown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, map[string]string{"UPSTAGE_API_KEY": "k"})
			res := c.Extract(context.Background(), types.Document{Name: "a.pdf", Data: samplePDF})
			require.False(t, res.OK())
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.True(t, strings.HasPrefix(res.Reason, "Error converting PDF to markdown:"), res.Reason)
			assert.Contains(t, res.Reason, tt.wantIn)
		})
	}
}

func TestExtractEmptyMarkdownIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":{"markdown":""}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, map[string]string{"UPSTAGE_API_KEY": "k"})
	res := c.Extract(context.Background(), types.Document{Name: "blank.pdf", Data: samplePDF})
	assert.True(t, res.OK())
	assert.Empty(t, res.Text)
}

func TestExtractTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, map[string]string{"UPSTAGE_API_KEY": "k"})
	res := c.Extract(context.Background(), types.Document{Name: "a.pdf", Data: samplePDF})
	assert.Equal(t, types.KindTransport, res.Kind)
	assert.True(t, strings.HasPrefix(res.Reason, "Error converting PDF to markdown:"))
}

func TestExtractCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":{"markdown":"x"}}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv.URL, map[string]string{"UPSTAGE_API_KEY": "k"})
	res := c.Extract(ctx, types.Document{Name: "a.pdf", Data: samplePDF})
	assert.Equal(t, types.KindTransport, res.Kind)
}

func TestExtractUnreadableDocument(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", map[string]string{"UPSTAGE_API_KEY": "k"})
	res := c.Extract(context.Background(), types.Document{Path: filepath.Join(t.TempDir(), "missing.pdf")})
	assert.Equal(t, types.KindTransport, res.Kind)
	assert.ErrorIs(t, res.Err(), types.ErrTransport)
	assert.True(t, strings.HasPrefix(res.Reason, "Error converting PDF to markdown:"), res.Reason)
	assert.Contains(t, res.Reason, "missing.pdf")
}

func TestExtractRetriesWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"content":{"markdown":"second"}}`)
	}))
	defer srv.Close()

	cfg := types.DefaultConfig().Extraction
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 2
	c := New(cfg, secrets.FromMap(map[string]string{"UPSTAGE_API_KEY": "k"}), nil, zerolog.Nop())

	res := c.Extract(context.Background(), types.Document{Name: "a.pdf", Data: samplePDF})
	require.True(t, res.OK(), res.Reason)
	assert.Equal(t, "second", res.Text)
	assert.Equal(t, int32(2), calls.Load())
}
