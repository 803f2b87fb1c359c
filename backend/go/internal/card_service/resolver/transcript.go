package resolver

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

var (
	// ErrNoTranscript means the video exposes no usable caption track.
	ErrNoTranscript = errors.New("no transcript available")
	// ErrTranscriptTooShort means the transcript has fewer words than required.
	ErrTranscriptTooShort = errors.New("transcript too short")
	// ErrTranscriptLanguage means the transcript failed the language sanity check.
	ErrTranscriptLanguage = errors.New("transcript failed language check")
)

// englishMarkers are common function words; a real English transcript of any
// useful length contains at least one of them.
var englishMarkers = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "a": {}, "in": {}, "is": {},
	"that": {}, "it": {}, "for": {}, "you": {}, "was": {}, "with": {},
	"on": {}, "as": {}, "are": {}, "this": {}, "be": {}, "have": {},
	"i": {}, "we": {}, "not": {}, "but": {}, "what": {}, "so": {},
}

// CheckTranscript enforces the minimum word count and the language sanity check.
func CheckTranscript(text string, minWords int) error {
	words := strings.Fields(text)
	if len(words) < minWords {
		return fmt.Errorf("%w: %d words, need %d", ErrTranscriptTooShort, len(words), minWords)
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r)
		}))
		if _, ok := englishMarkers[w]; ok {
			return nil
		}
	}
	return ErrTranscriptLanguage
}

// Doer is satisfied by *http.Client and by the breaker-wrapped client in pkg/http.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// YouTubeTranscriptFetcher reads the caption track list out of the watch page
// player response and downloads the English timed-text track.
type YouTubeTranscriptFetcher struct {
	client   Doer
	watchURL string
	language string
}

// NewYouTubeTranscriptFetcher creates a fetcher for English captions.
func NewYouTubeTranscriptFetcher(client Doer) *YouTubeTranscriptFetcher {
	return &YouTubeTranscriptFetcher{
		client:   client,
		watchURL: "https://www.youtube.com/watch",
		language: "en",
	}
}

// Transcript implements TranscriptFetcher.
func (f *YouTubeTranscriptFetcher) Transcript(ctx context.Context, videoURL string) (string, error) {
	u, err := url.Parse(videoURL)
	if err != nil {
		return "", err
	}
	id := VideoID(u)
	if id == "" {
		return "", fmt.Errorf("%w: no video id", ErrNoTranscript)
	}

	page, err := f.get(ctx, f.watchURL+"?v="+url.QueryEscape(id)+"&hl=en")
	if err != nil {
		return "", fmt.Errorf("fetch watch page: %w", err)
	}
	trackURL, err := f.captionTrack(page)
	if err != nil {
		return "", err
	}
	body, err := f.get(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("fetch caption track: %w", err)
	}
	return ParseTimedText(body)
}

// captionTrack finds the base URL of the preferred caption track in the watch page.
func (f *YouTubeTranscriptFetcher) captionTrack(page string) (string, error) {
	const marker = "ytInitialPlayerResponse = "
	idx := strings.Index(page, marker)
	if idx < 0 {
		return "", fmt.Errorf("%w: player response not found", ErrNoTranscript)
	}
	// gjson stops reading once the path is resolved, so the trailing script is harmless.
	tracks := gjson.Get(page[idx+len(marker):], "captions.playerCaptionsTracklistRenderer.captionTracks")
	if !tracks.IsArray() {
		return "", fmt.Errorf("%w: captions disabled", ErrNoTranscript)
	}

	var manual, generated string
	tracks.ForEach(func(_, track gjson.Result) bool {
		lang := track.Get("languageCode").String()
		if lang != f.language && !strings.HasPrefix(lang, f.language+"-") {
			return true
		}
		base := track.Get("baseUrl").String()
		if track.Get("kind").String() == "asr" {
			if generated == "" {
				generated = base
			}
			return true
		}
		if manual == "" {
			manual = base
		}
		return true
	})
	switch {
	case manual != "":
		return manual, nil
	case generated != "":
		return generated, nil
	default:
		return "", fmt.Errorf("%w: no %s track", ErrNoTranscript, f.language)
	}
}

func (f *YouTubeTranscriptFetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// ParseTimedText joins the <text> segments of a timed-text document with spaces.
func ParseTimedText(body string) (string, error) {
	var doc timedText
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return "", fmt.Errorf("parse caption track: %w", err)
	}
	segments := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		s := strings.Join(strings.Fields(html.UnescapeString(t.Value)), " ")
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(segments, " "), nil
}
