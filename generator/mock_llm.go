package generator

import (
	"context"
	"html"
	"strings"
)

// MockLLM is an offline stand-in for local debugging. It never calls a model:
// every reply is a small HTML page that echoes the last user message.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, msgs []Message, _ Options) (string, error) {
	var last string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			last = msgs[i].Content
			break
		}
	}

	var sb strings.Builder
	sb.WriteString("Here is a simulation for your request.\n\n")
	sb.WriteString("```html\n")
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Mock simulation</title></head>\n<body>\n")
	sb.WriteString("<h1>Mock simulation</h1>\n<pre>")
	sb.WriteString(html.EscapeString(last))
	sb.WriteString("</pre>\n</body>\n</html>\n")
	sb.WriteString("```\n")
	return sb.String(), nil
}
