package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Render encodes doc in the named format.
func Render(doc Document, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json export: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml export: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml export: %w", err)
		}
		return buf.Bytes(), nil
	case FormatMarkdown, "md":
		return []byte(markdown(doc)), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Style renders markdown for a terminal.
func Style(md []byte) (string, error) {
	styled, err := glamour.Render(string(md), "dark")
	if err != nil {
		return "", fmt.Errorf("style markdown: %w", err)
	}
	return styled, nil
}

func markdown(doc Document) string {
	var b strings.Builder
	info := doc.SessionInfo

	b.WriteString("# Interview transcript\n\n")
	fmt.Fprintf(&b, "- Session: `%s`\n", info.ID)
	if info.Type != "" {
		fmt.Fprintf(&b, "- Category: %s\n", info.Type)
	}
	if info.CreatedAt != "" {
		fmt.Fprintf(&b, "- Started: %s\n", info.CreatedAt)
	}
	fmt.Fprintf(&b, "- Turns: %d\n", info.Duration)

	b.WriteString("\n## Conversation\n")
	if len(doc.Conversation) == 0 {
		b.WriteString("\n_No turns recorded._\n")
	}
	for _, entry := range doc.Conversation {
		b.WriteString("\n**")
		b.WriteString(roleTitle(entry.Role))
		b.WriteString("**")
		if entry.Timestamp != "" {
			fmt.Fprintf(&b, " _(%s)_", entry.Timestamp)
		}
		b.WriteString("\n\n")
		b.WriteString(quote(entry.Content))
		b.WriteString("\n")
	}

	eval := doc.Evaluation
	b.WriteString("\n## Evaluation\n\n")
	fmt.Fprintf(&b, "- Responses: %d\n", eval.TotalResponses)
	fmt.Fprintf(&b, "- Average response length: %.1f characters\n", eval.AverageResponseLength)
	fmt.Fprintf(&b, "- Engagement score: %d/10\n", eval.EngagementScore)
	if eval.Notes != "" {
		fmt.Fprintf(&b, "\n%s\n", eval.Notes)
	}
	return b.String()
}

func roleTitle(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// quote renders content as a blockquote so multi-line answers stay grouped.
func quote(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "> _(empty)_"
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n")
}
