// Package pipeline sequences content indexing per source: fetch or read,
// extract, chunk, synthesize question-answer pairs, assemble records, and
// replace-then-fill the target index.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"docgenie/apps/indexer/internal/extract"
	"docgenie/apps/indexer/internal/identifier"
	"docgenie/apps/indexer/internal/index"
	"docgenie/apps/indexer/internal/qa"
	"docgenie/apps/indexer/internal/text"
)

// Searcher is the slice of the index service the pipeline mutates.
type Searcher interface {
	EnsureIndex(ctx context.Context, name string, schema index.Schema) error
	Upload(ctx context.Context, indexName string, docs []index.Document) (int, error)
}

// Synthesizer produces question-answer pairs and cleans transcript chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, content string, target int) ([]qa.Pair, error)
	Enhance(ctx context.Context, chunk string) string
}

// PageFetcher supplies raw markup for a URL.
type PageFetcher interface {
	Page(ctx context.Context, url string) ([]byte, error)
}

// BlobReader supplies raw bytes for a stored file by name.
type BlobReader interface {
	Read(name string) ([]byte, error)
}

// Message is one turn of a conversation to be indexed.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the tunables for chunking and synthesis targets.
type Options struct {
	ChunkSize          int
	ChunkOverlap       int
	QAMinPairs         int
	QAMaxPairs         int
	QAPairMultiple     int
	SemanticTitleField string
}

// Result reports what one source produced. Skipped results carry a reason
// and leave the index service untouched.
type Result struct {
	IndexName string
	Records   int
	Skipped   bool
	Reason    string
}

type Pipeline struct {
	fetcher     PageFetcher
	documents   BlobReader
	transcripts BlobReader
	extractor   *extract.HTMLExtractor
	synth       Synthesizer
	search      Searcher
	opts        Options
	now         func() time.Time
}

func New(fetcher PageFetcher, documents, transcripts BlobReader, extractor *extract.HTMLExtractor, synth Synthesizer, search Searcher, opts Options) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		documents:   documents,
		transcripts: transcripts,
		extractor:   extractor,
		synth:       synth,
		search:      search,
		opts:        opts,
		now:         time.Now,
	}
}

// IndexWebPage fetches a URL, extracts its content, and replaces the
// source's index with section, content-chunk, and question-answer records.
func (p *Pipeline) IndexWebPage(ctx context.Context, url string) (Result, error) {
	raw, err := p.fetcher.Page(ctx, url)
	if err != nil {
		return Result{}, fmt.Errorf("fetch page: %w", err)
	}

	content, err := p.extractor.Extract(string(raw))
	if err != nil {
		return Result{}, fmt.Errorf("extract page: %w", err)
	}
	if content.Empty() {
		slog.InfoContext(ctx, "skipping source with no extractable content", "url", url)
		return Result{Skipped: true, Reason: "no extractable content"}, nil
	}

	ts := index.Timestamp(p.now())
	var records []index.Document

	for i, section := range content.Sections {
		records = append(records, index.Document{
			ID:         identifier.DocumentID(url, fmt.Sprintf("section-%d", i)),
			DocType:    index.DocTypeSection,
			PageTitle:  content.Title,
			Title:      section.Title,
			Content:    section.Content,
			FileName:   url,
			UploadDate: ts,
		})
	}

	chunks, err := text.Split(content.MainText, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if err != nil {
		return Result{}, fmt.Errorf("chunk page text: %w", err)
	}
	for _, chunk := range chunks {
		records = append(records, index.Document{
			ID:         identifier.DocumentID(url, fmt.Sprintf("content-%d", chunk.Index)),
			DocType:    index.DocTypeContent,
			PageTitle:  content.Title,
			Title:      fmt.Sprintf("%s - Content Part %d", content.Title, chunk.Index+1),
			Content:    chunk.Content,
			FileName:   url,
			UploadDate: ts,
		})
	}

	target := qa.Target(len(content.MainText), p.opts.QAMinPairs, p.opts.QAMaxPairs, p.opts.QAPairMultiple)
	pairs, err := p.synth.Synthesize(ctx, content.MainText, target)
	if err != nil {
		return Result{}, fmt.Errorf("synthesize pairs: %w", err)
	}
	records = append(records, p.pairRecords(url, content.Title, pairs, ts)...)

	return p.publish(ctx, identifier.IndexName(url), records)
}

// IndexFile reads an uploaded PDF or markdown document and replaces its
// index with question-answer records.
func (p *Pipeline) IndexFile(ctx context.Context, name string) (Result, error) {
	raw, err := p.documents.Read(name)
	if err != nil {
		return Result{}, fmt.Errorf("read document: %w", err)
	}

	var body string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		body, err = extract.PDFText(raw)
		if err != nil {
			return Result{}, fmt.Errorf("extract pdf text: %w", err)
		}
	default:
		body = extract.MarkdownText(raw)
	}
	if strings.TrimSpace(body) == "" {
		slog.InfoContext(ctx, "skipping document with no extractable text", "name", name)
		return Result{Skipped: true, Reason: "no extractable content"}, nil
	}

	target := qa.Target(len(body), p.opts.QAMinPairs, qa.FileMaxPairs, 1)
	pairs, err := p.synth.Synthesize(ctx, body, target)
	if err != nil {
		return Result{}, fmt.Errorf("synthesize pairs: %w", err)
	}

	ts := index.Timestamp(p.now())
	records := p.pairRecords(name, name, pairs, ts)
	return p.publish(ctx, identifier.IndexName(name), records)
}

// IndexTranscript reads a transcript drop, strips timestamps and speaker
// labels, and replaces its index with model-cleaned chunk records.
func (p *Pipeline) IndexTranscript(ctx context.Context, name string) (Result, error) {
	raw, err := p.transcripts.Read(name)
	if err != nil {
		return Result{}, fmt.Errorf("read transcript: %w", err)
	}

	cleaned := text.CleanTranscript(string(raw))
	if cleaned == "" {
		slog.InfoContext(ctx, "skipping empty transcript", "name", name)
		return Result{Skipped: true, Reason: "no extractable content"}, nil
	}

	chunks, err := text.Split(cleaned, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if err != nil {
		return Result{}, fmt.Errorf("chunk transcript: %w", err)
	}

	ts := index.Timestamp(p.now())
	records := make([]index.Document, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, index.Document{
			ID:         identifier.DocumentID(name, fmt.Sprintf("chunk-%d", chunk.Index)),
			DocType:    index.DocTypeTranscriptChunk,
			PageTitle:  name,
			Title:      fmt.Sprintf("%s - Part %d", name, chunk.Index+1),
			Content:    p.synth.Enhance(ctx, chunk.Content),
			FileName:   name,
			UploadDate: ts,
		})
	}

	return p.publish(ctx, identifier.IndexName(name), records)
}

// IndexConversation flattens a message history to "Role: text" lines,
// synthesizes question-answer pairs from it, and replaces the conversation's
// dedicated index.
func (p *Pipeline) IndexConversation(ctx context.Context, conversationID string, messages []Message) (Result, error) {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		body := text.NormalizeSpace(m.Content)
		if body == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, body))
	}
	flattened := strings.Join(lines, "\n")
	if flattened == "" {
		slog.InfoContext(ctx, "skipping empty conversation", "conversation_id", conversationID)
		return Result{Skipped: true, Reason: "no extractable content"}, nil
	}

	target := qa.Target(len(flattened), p.opts.QAMinPairs, qa.FileMaxPairs, 1)
	pairs, err := p.synth.Synthesize(ctx, flattened, target)
	if err != nil {
		return Result{}, fmt.Errorf("synthesize pairs: %w", err)
	}

	locator := "conversation-" + conversationID
	ts := index.Timestamp(p.now())
	records := p.pairRecords(locator, locator, pairs, ts)
	return p.publish(ctx, identifier.IndexName(locator), records)
}

// pairRecords turns question-answer pairs into qa documents: the question
// becomes the searchable title, and the content carries both halves so a hit
// reads as a complete exchange.
func (p *Pipeline) pairRecords(locator, pageTitle string, pairs []qa.Pair, ts string) []index.Document {
	records := make([]index.Document, 0, len(pairs))
	for i, pair := range pairs {
		records = append(records, index.Document{
			ID:         identifier.DocumentID(locator, fmt.Sprintf("qa-%d", i)),
			DocType:    index.DocTypeQA,
			PageTitle:  pageTitle,
			Title:      pair.Question,
			Content:    fmt.Sprintf("Question: %s\nAnswer: %s", pair.Question, pair.Answer),
			FileName:   locator,
			UploadDate: ts,
		})
	}
	return records
}

// publish replaces the named index and uploads the assembled batch. An
// upload failure after the index is recreated leaves an empty, schema-correct
// index, which a rerun overwrites.
func (p *Pipeline) publish(ctx context.Context, indexName string, records []index.Document) (Result, error) {
	if len(records) == 0 {
		slog.InfoContext(ctx, "no records assembled, leaving index untouched", "index", indexName)
		return Result{IndexName: indexName, Skipped: true, Reason: "no records assembled"}, nil
	}

	schema := index.DefaultSchema(p.opts.SemanticTitleField)
	if err := p.search.EnsureIndex(ctx, indexName, schema); err != nil {
		return Result{}, fmt.Errorf("ensure index %s: %w", indexName, err)
	}

	accepted, err := p.search.Upload(ctx, indexName, records)
	if err != nil {
		return Result{}, fmt.Errorf("upload to %s: %w", indexName, err)
	}

	slog.InfoContext(ctx, "indexed source", "index", indexName, "records", accepted)
	return Result{IndexName: indexName, Records: accepted}, nil
}
