// Package resolver turns a card source (video URL, web URL or uploaded
// document) into plain text.
package resolver

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"
)

// SourceKind tells which branch produced a RawContent.
type SourceKind string

const (
	KindVideo    SourceKind = "video"
	KindWeb      SourceKind = "web"
	KindDocument SourceKind = "document"
)

// ErrNoSource is returned when a Source has neither a URL nor a document.
var ErrNoSource = errors.New("source has neither url nor document")

// UploadedDocument is a file received from the user. Filename is informational;
// the type is always sniffed from Data.
type UploadedDocument struct {
	Filename string
	Data     []byte
}

// Source is what a card is built from. At most one field is expected to be set;
// URL wins if both are.
type Source struct {
	URL      string
	Document *UploadedDocument
}

// Empty reports whether the source carries nothing to resolve. An uploaded
// document counts as a source even when it has no bytes.
func (s Source) Empty() bool {
	return strings.TrimSpace(s.URL) == "" && s.Document == nil
}

// RawContent is the plain text extracted from a source.
type RawContent struct {
	Text   string
	Kind   SourceKind
	Source string
}

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// TranscriptFetcher returns the spoken text of a video, segments joined by spaces.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoURL string) (string, error)
}

// Resolver dispatches a Source to the matching extraction branch.
type Resolver struct {
	videos      *VideoMatcher
	pages       PageFetcher
	transcripts TranscriptFetcher
	documents   *DocumentExtractor
	minWords    int
	log         *logger.Logger
}

// New wires a Resolver. minWords is the smallest accepted transcript length.
func New(videos *VideoMatcher, pages PageFetcher, transcripts TranscriptFetcher, documents *DocumentExtractor, minWords int, log *logger.Logger) *Resolver {
	return &Resolver{
		videos:      videos,
		pages:       pages,
		transcripts: transcripts,
		documents:   documents,
		minWords:    minWords,
		log:         log,
	}
}

// Resolve extracts text from src. Failures are *models.PipelineError of kind
// FetchFailed, TranscriptUnavailable or UnsupportedFileType.
func (r *Resolver) Resolve(ctx context.Context, src Source) (*RawContent, error) {
	if src.Empty() {
		return nil, ErrNoSource
	}
	if raw := strings.TrimSpace(src.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, models.NewPipelineError(models.KindFetchFailed, "resolve", errors.New("invalid url: "+raw))
		}
		if r.videos.Match(u) {
			return r.resolveVideo(ctx, u)
		}
		return r.resolveWeb(ctx, u)
	}
	return r.resolveDocument(src.Document)
}

func (r *Resolver) resolveVideo(ctx context.Context, u *url.URL) (*RawContent, error) {
	if VideoID(u) == "" {
		return nil, models.NewPipelineError(models.KindTranscriptUnavailable, "transcript", errors.New("no video id in url"))
	}
	text, err := r.transcripts.Transcript(ctx, u.String())
	if err != nil {
		r.log.WithErr(err).WithField("url", u.String()).Info("transcript fetch failed")
		return nil, models.NewPipelineError(models.KindTranscriptUnavailable, "transcript", err)
	}
	if err := CheckTranscript(text, r.minWords); err != nil {
		return nil, models.NewPipelineError(models.KindTranscriptUnavailable, "transcript", err)
	}
	return &RawContent{Text: text, Kind: KindVideo, Source: u.String()}, nil
}

func (r *Resolver) resolveWeb(ctx context.Context, u *url.URL) (*RawContent, error) {
	page, err := r.pages.Fetch(ctx, u.String())
	if err != nil {
		return nil, models.NewPipelineError(models.KindFetchFailed, "fetch", err)
	}
	text, err := CleanHTML(page)
	if err != nil {
		return nil, models.NewPipelineError(models.KindFetchFailed, "clean", err)
	}
	if text == "" {
		return nil, models.NewPipelineError(models.KindFetchFailed, "clean", errors.New("page has no readable text"))
	}
	return &RawContent{Text: text, Kind: KindWeb, Source: u.String()}, nil
}

func (r *Resolver) resolveDocument(doc *UploadedDocument) (*RawContent, error) {
	text, err := r.documents.Extract(doc.Data)
	if err != nil {
		return nil, err
	}
	return &RawContent{Text: text, Kind: KindDocument, Source: doc.Filename}, nil
}
