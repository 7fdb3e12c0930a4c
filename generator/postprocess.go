package generator

import (
	"regexp"
	"strings"
)

// UpdateKind classifies the code found in a reply. Both full and partial
// updates replace the artifact; the distinction is reported, not acted on.
type UpdateKind string

const (
	UpdateNone    UpdateKind = "none"
	UpdateFull    UpdateKind = "full"
	UpdatePartial UpdateKind = "partial"
)

var (
	// First fence tagged html, javascript or css, up to the next fence.
	taggedFenceRe = regexp.MustCompile("(?s)```(?:html|javascript|css)(.*?)```")
	anyFenceRe    = regexp.MustCompile("(?s)```.*?```")
	fullDocRe     = regexp.MustCompile(`(?i)<html|<!doctype`)
)

// Extraction is what ExtractCode found in a model reply.
type Extraction struct {
	// Display is the reply with every fenced block removed, trimmed.
	Display string
	// Code is the trimmed body of the first tagged block. Only meaningful when Found.
	Code  string
	Found bool
	Kind  UpdateKind
}

// ExtractCode finds the first fenced block tagged html, javascript or css.
// Later blocks are ignored and untagged blocks are never extracted.
func ExtractCode(reply string) Extraction {
	out := Extraction{Display: reply, Kind: UpdateNone}

	m := taggedFenceRe.FindStringSubmatch(reply)
	if m == nil {
		return out
	}
	out.Found = true
	out.Code = strings.TrimSpace(m[1])
	if fullDocRe.MatchString(out.Code) {
		out.Kind = UpdateFull
	} else {
		out.Kind = UpdatePartial
	}
	out.Display = stripFences(reply)
	return out
}

// stripFences drops every fenced block of any tag plus stray fence markers.
func stripFences(reply string) string {
	s := anyFenceRe.ReplaceAllString(reply, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// displayText is what the transcript shows for an assistant reply.
func displayText(reply string) string {
	s := stripFences(reply)
	if s == "" {
		return codeOnlyReply
	}
	return s
}
