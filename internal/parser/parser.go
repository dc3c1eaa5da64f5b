// Package parser converts between Markdown files with YAML front matter and
// note fields.
package parser

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Front matter keys with a fixed meaning. Every other key is note data.
const (
	KeyID    = "id"
	KeyTitle = "title"
	KeyTags  = "tags"
)

const delim = "---"

// Result holds the note fields recovered from a Markdown file.
type Result struct {
	ID    string
	Title string
	Tags  []string
	Data  map[string]any
	Body  string
}

// Parse splits data into front matter and body. The title comes from the
// front matter, falling back to the first H1 heading. Files without (or with
// unreadable) front matter are all body.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	r := &Result{Body: body, Data: map[string]any{}}
	for k, v := range fm {
		switch k {
		case KeyID:
			if s, ok := v.(string); ok {
				r.ID = strings.TrimSpace(s)
			}
		case KeyTitle:
			if s, ok := v.(string); ok {
				r.Title = strings.TrimSpace(s)
			}
		case KeyTags:
			tags, err := stringList(v)
			if err != nil {
				return nil, err
			}
			r.Tags = tags
		default:
			r.Data[k] = v
		}
	}
	if r.Title == "" {
		r.Title = firstHeading(body)
	}
	return r, nil
}

// Render writes a Markdown file with front matter holding id, title, tags
// and the data keys (sorted), followed by body.
func Render(id, title string, tags []string, data map[string]any, body string) ([]byte, error) {
	var fm yaml.Node
	fm.Kind = yaml.MappingNode

	add := func(key string, value any) error {
		var v yaml.Node
		if err := v.Encode(value); err != nil {
			return fmt.Errorf("parser: encode %s: %w", key, err)
		}
		fm.Content = append(fm.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, &v)
		return nil
	}
	if id != "" {
		if err := add(KeyID, id); err != nil {
			return nil, err
		}
	}
	if err := add(KeyTitle, title); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := add(KeyTags, tags); err != nil {
			return nil, err
		}
	}
	for _, k := range slices.Sorted(maps.Keys(data)) {
		if k == KeyID || k == KeyTitle || k == KeyTags {
			continue
		}
		if err := add(k, data[k]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&fm); err != nil {
		return nil, fmt.Errorf("parser: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode front matter: %w", err)
	}
	buf.WriteString(delim + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML front matter (between leading ---
// delimiters) from the Markdown body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// stringList accepts a YAML sequence of strings or a single comma-separated string.
func stringList(v any) ([]string, error) {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parser: tags must be strings, got %T", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("parser: tags must be a list, got %T", v)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
