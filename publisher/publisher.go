// Package publisher writes a finished simulation to disk as a self-contained bundle:
// the single-file simulation, its refinement transcript rendered to HTML, and metadata.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"simulation_builder/generator"
	"simulation_builder/logger"
)

const (
	indexFile      = "index.html"
	transcriptFile = "transcript.html"
	metaFile       = "meta.json"
)

// PublishParams describes the simulation to be published.
type PublishParams struct {
	Title      string
	Code       string
	Transcript []generator.Message
	Author     string
	Digest     string
}

// Bundle lists the files a publish produced.
type Bundle struct {
	Dir            string `json:"dir"`
	IndexPath      string `json:"index_path"`
	TranscriptPath string `json:"transcript_path"`
	MetaPath       string `json:"meta_path"`
}

type meta struct {
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Digest      string    `json:"digest"`
	Turns       int       `json:"turns"`
	CodeBytes   int       `json:"code_bytes"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher writes bundles under a root directory.
type Publisher struct {
	root string
	log  *logger.Logger
	now  func() time.Time
}

func New(root string, log *logger.Logger) (*Publisher, error) {
	if root == "" {
		return nil, errors.New("publisher output dir is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Publisher{root: root, log: log, now: time.Now}, nil
}

// Publish writes the bundle and returns where it went. An existing bundle with
// the same title is left alone; a new directory with a timestamp suffix is used.
func (p *Publisher) Publish(ctx context.Context, params PublishParams) (Bundle, error) {
	if strings.TrimSpace(params.Title) == "" {
		return Bundle{}, errors.New("title is required")
	}
	if strings.TrimSpace(params.Code) == "" {
		return Bundle{}, errors.New("code is empty; nothing to publish")
	}
	if err := ctx.Err(); err != nil {
		return Bundle{}, err
	}

	now := p.now().UTC()
	dir := filepath.Join(p.root, slugify(params.Title)+"-"+now.Format("20060102T150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("create bundle dir: %w", err)
	}
	b := Bundle{
		Dir:            dir,
		IndexPath:      filepath.Join(dir, indexFile),
		TranscriptPath: filepath.Join(dir, transcriptFile),
		MetaPath:       filepath.Join(dir, metaFile),
	}

	if err := os.WriteFile(b.IndexPath, []byte(params.Code), 0o644); err != nil {
		return Bundle{}, fmt.Errorf("write simulation: %w", err)
	}
	p.log.Debug("wrote simulation", "path", b.IndexPath, "bytes", len(params.Code))

	transcriptMD := transcriptMarkdown(params.Title, params.Transcript)
	body, err := mdToHTML(transcriptMD)
	if err != nil {
		return Bundle{}, fmt.Errorf("render transcript: %w", err)
	}
	if err := os.WriteFile(b.TranscriptPath, []byte(wrapPage(params.Title+" - transcript", body)), 0o644); err != nil {
		return Bundle{}, fmt.Errorf("write transcript: %w", err)
	}
	p.log.Debug("wrote transcript", "path", b.TranscriptPath)

	digest := params.Digest
	if digest == "" {
		digest = defaultDigest(firstUserMessage(params.Transcript), 120)
	}
	m := meta{
		Title:       params.Title,
		Author:      params.Author,
		Digest:      digest,
		Turns:       countTurns(params.Transcript),
		CodeBytes:   len(params.Code),
		PublishedAt: now,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Bundle{}, err
	}
	if err := os.WriteFile(b.MetaPath, data, 0o644); err != nil {
		return Bundle{}, fmt.Errorf("write metadata: %w", err)
	}

	p.log.Info("simulation published", "title", params.Title, "dir", dir)
	return b, nil
}

func transcriptMarkdown(title string, msgs []generator.Message) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	for _, m := range msgs {
		switch m.Role {
		case generator.RoleUser:
			sb.WriteString("## You\n\n")
		case generator.RoleAssistant:
			sb.WriteString("## Assistant\n\n")
		default:
			continue
		}
		sb.WriteString(strings.TrimSpace(m.Content))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func wrapPage(title, body string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</title>\n</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "simulation"
	}
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}

func firstUserMessage(msgs []generator.Message) string {
	for _, m := range msgs {
		if m.Role == generator.RoleUser {
			return m.Content
		}
	}
	return ""
}

func countTurns(msgs []generator.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == generator.RoleUser {
			n++
		}
	}
	return n
}

func defaultDigest(md string, limit int) string {
	compact := strings.Fields(md)
	joined := strings.Join(compact, " ")
	if len(joined) <= limit {
		return joined
	}
	return joined[:limit]
}
