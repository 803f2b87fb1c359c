package resolver

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscripts struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscripts) Transcript(ctx context.Context, videoURL string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakePages struct {
	html string
	err  error
}

func (f *fakePages) Fetch(ctx context.Context, pageURL string) (string, error) {
	return f.html, f.err
}

func newTestResolver(t *testing.T, pages PageFetcher, transcripts TranscriptFetcher) *Resolver {
	t.Helper()
	vm, err := NewVideoMatcher([]string{"www.youtube.com", "youtube.com", "youtu.be"})
	require.NoError(t, err)
	return New(vm, pages, transcripts, NewDocumentExtractor(1<<20), 10, logger.Nop())
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestVideoMatcher(t *testing.T) {
	vm, err := NewVideoMatcher([]string{"youtube.com", "*.youtube.com", "youtu.be"})
	require.NoError(t, err)

	cases := map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"https://m.youtube.com/watch?v=abc":   true,
		"https://YouTube.com/watch?v=abc":     true,
		"https://youtu.be/abc":                true,
		"https://a.b.youtube.com/watch?v=abc": false,
		"https://notyoutube.com/watch?v=abc":  false,
		"https://example.com/youtube.com":     false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, vm.Match(mustURL(t, raw)), raw)
	}
}

func TestVideoID(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/dQw4w9WgXcQ":                    "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=10":               "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1": "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abc123":           "abc123",
		"https://www.youtube.com/embed/xyz":               "xyz",
		"https://www.youtube.com/feed/trending":           "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, VideoID(mustURL(t, raw)), raw)
	}
}

func TestCheckTranscript(t *testing.T) {
	assert.ErrorIs(t, CheckTranscript("only four words here", 10), ErrTranscriptTooShort)
	assert.ErrorIs(t, CheckTranscript(strings.Repeat("hola mundo bonito ", 5), 10), ErrTranscriptLanguage)
	assert.NoError(t, CheckTranscript("today we talk about the history of computing and why it matters", 10))
}

func TestResolve_ShortTranscriptIsUnavailable(t *testing.T) {
	tr := &fakeTranscripts{text: "only four words here"}
	r := newTestResolver(t, &fakePages{}, tr)

	_, err := r.Resolve(context.Background(), Source{URL: "https://youtu.be/abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTranscriptUnavailable)
	assert.ErrorIs(t, err, ErrTranscriptTooShort)
	assert.Equal(t, 1, tr.calls)
}

func TestResolve_TranscriptErrorIsUnavailable(t *testing.T) {
	r := newTestResolver(t, &fakePages{}, &fakeTranscripts{err: ErrNoTranscript})
	_, err := r.Resolve(context.Background(), Source{URL: "https://www.youtube.com/watch?v=abc"})
	assert.ErrorIs(t, err, models.ErrTranscriptUnavailable)
}

func TestResolve_Video(t *testing.T) {
	text := "in this video we explain how the transformer architecture works step by step"
	r := newTestResolver(t, &fakePages{}, &fakeTranscripts{text: text})

	raw, err := r.Resolve(context.Background(), Source{URL: "https://www.youtube.com/watch?v=abc"})
	require.NoError(t, err)
	assert.Equal(t, KindVideo, raw.Kind)
	assert.Equal(t, text, raw.Text)
}

func TestResolve_Web(t *testing.T) {
	page := `<html><body><nav>Menu</nav><h1>Title</h1><p> First line </p><script>var x=1;</script><p>Second</p></body></html>`
	r := newTestResolver(t, &fakePages{html: page}, &fakeTranscripts{})

	raw, err := r.Resolve(context.Background(), Source{URL: "https://example.com/post"})
	require.NoError(t, err)
	assert.Equal(t, KindWeb, raw.Kind)
	assert.Equal(t, "Title\nFirst line\nSecond", raw.Text)
}

func TestResolve_WebFetchError(t *testing.T) {
	r := newTestResolver(t, &fakePages{err: ErrChallengeUnresolved}, &fakeTranscripts{})
	_, err := r.Resolve(context.Background(), Source{URL: "https://example.com"})
	assert.ErrorIs(t, err, models.ErrFetchFailed)
	assert.ErrorIs(t, err, ErrChallengeUnresolved)
}

func TestResolve_InvalidURL(t *testing.T) {
	r := newTestResolver(t, &fakePages{}, &fakeTranscripts{})
	_, err := r.Resolve(context.Background(), Source{URL: "ftp://example.com/file"})
	assert.ErrorIs(t, err, models.ErrFetchFailed)
}

func TestResolve_EmptySource(t *testing.T) {
	r := newTestResolver(t, &fakePages{}, &fakeTranscripts{})
	_, err := r.Resolve(context.Background(), Source{})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestResolve_ZeroByteDocumentIsUnsupported(t *testing.T) {
	r := newTestResolver(t, &fakePages{}, &fakeTranscripts{})
	src := Source{Document: &UploadedDocument{Filename: "report.pdf", Data: []byte{}}}
	assert.False(t, src.Empty())

	_, err := r.Resolve(context.Background(), src)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSource)
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)
}

func TestCleanHTML(t *testing.T) {
	page := `<!doctype html><html><head><title>ignored</title><style>p{}</style></head>
<body>
  <header>Site header</header>
  <div>
    Intro text
    <!-- a comment -->
    <img src="x.png" alt="alt text">
    <pre>code block</pre>
    <ul><li>one</li><li>  two  </li></ul>
    <select><option>pick</option></select>
    <button>Click</button>
    <svg><text>vector</text></svg>
    <iframe src="ad"></iframe>
  </div>
  <footer>Copyright</footer>
</body></html>`
	text, err := CleanHTML(page)
	require.NoError(t, err)
	assert.Equal(t, "Intro text\none\ntwo", text)
}

func TestHTTPPageFetcher_WaitsOutChallenge(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `<html><head><title>Just a moment...</title></head><body>challenge-platform</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><p>real content</p></body></html>`)
	}))
	defer srv.Close()

	f := NewHTTPPageFetcher(srv.Client(), 10*time.Second)
	var slept []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error { slept = append(slept, d); return nil }

	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "real content")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestHTTPPageFetcher_ChallengeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<div class="cf-browser-verification"></div>`)
	}))
	defer srv.Close()

	f := NewHTTPPageFetcher(srv.Client(), 30*time.Millisecond)
	f.initialDelay = 10 * time.Millisecond

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrChallengeUnresolved)
}

func TestHTTPPageFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewHTTPPageFetcher(srv.Client(), time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestYouTubeTranscriptFetcher(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid42", r.URL.Query().Get("v"))
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
			{"baseUrl":"%[1]s/tt?lang=de","languageCode":"de"},
			{"baseUrl":"%[1]s/tt?lang=en-asr","languageCode":"en","kind":"asr"},
			{"baseUrl":"%[1]s/tt?lang=en","languageCode":"en"}]}}};var meta = {};</script></html>`, srv.URL)
	})
	mux.HandleFunc("/tt", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8" ?><transcript><text start="0" dur="1">hello and</text><text start="1" dur="2">welcome to &amp;#39;the&amp;#39; show</text></transcript>`)
	})

	f := NewYouTubeTranscriptFetcher(srv.Client())
	f.watchURL = srv.URL + "/watch"

	text, err := f.Transcript(context.Background(), "https://youtu.be/vid42")
	require.NoError(t, err)
	assert.Equal(t, "hello and welcome to 'the' show", text)
}

func TestYouTubeTranscriptFetcher_NoCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script>var ytInitialPlayerResponse = {"videoDetails":{}};</script>`)
	}))
	defer srv.Close()

	f := NewYouTubeTranscriptFetcher(srv.Client())
	f.watchURL = srv.URL
	_, err := f.Transcript(context.Background(), "https://youtu.be/x")
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestDocumentExtractor_SniffsContentNotName(t *testing.T) {
	d := NewDocumentExtractor(1 << 20)
	require.NoError(t, d.Register(MimePDF, func(data []byte) (string, error) { return "pdf text", nil }))

	text, err := d.Extract([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)

	// a text file renamed to report.pdf is still text
	r := newTestResolver(t, &fakePages{}, &fakeTranscripts{})
	r.documents = d
	_, err = r.Resolve(context.Background(), Source{Document: &UploadedDocument{Filename: "report.pdf", Data: []byte("just some plain text")}})
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)
}

func TestDocumentExtractor_RejectsOtherBinaries(t *testing.T) {
	d := NewDocumentExtractor(1 << 20)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err := d.Extract(png)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)
	assert.Contains(t, err.Error(), "image/png")
}

func TestDocumentExtractor_DetectsDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, _ = w.Write([]byte("<x/>"))
	}
	require.NoError(t, zw.Close())

	d := NewDocumentExtractor(1 << 20)
	require.NoError(t, d.Register(MimeDOCX, func(data []byte) (string, error) { return "para one\npara two", nil }))

	text, err := d.Extract(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "para one\npara two", text)
}

func TestDocumentExtractor_ExtractionFailure(t *testing.T) {
	d := NewDocumentExtractor(1 << 20)
	require.NoError(t, d.Register(MimePDF, func(data []byte) (string, error) { return "", errors.New("corrupt xref") }))
	_, err := d.Extract([]byte("%PDF-1.7\n"))
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)
}

func TestDocumentExtractor_SizeLimit(t *testing.T) {
	d := NewDocumentExtractor(4)
	_, err := d.Extract([]byte("%PDF-1.7"))
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)
}

func TestDocumentExtractor_RegisterUnknownMime(t *testing.T) {
	assert.Error(t, NewDocumentExtractor(0).Register("text/plain", nil))
}
