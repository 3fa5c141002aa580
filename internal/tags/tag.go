// Package tags renders the HTML that references compiled assets: script and
// stylesheet tags carrying Subresource Integrity for local files, versioned
// URLs for external ones, and preload hints.
package tags

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
)

// Kind is the closed set of tags the package emits.
type Kind int

const (
	KindScript Kind = iota
	KindStylesheet
	KindPreload
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStylesheet:
		return "stylesheet"
	case KindPreload:
		return "preload"
	default:
		return "unknown"
	}
}

// Attr is one HTML attribute. Attributes render in slice order.
type Attr struct {
	Name  string
	Value string
}

// Tag is a renderable element.
type Tag struct {
	Kind  Kind
	Attrs []Attr
}

// Get returns the value of the named attribute, or "".
func (t Tag) Get(name string) string {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Render returns the element's HTML. Attributes with empty values are
// omitted and values are escaped for a double-quoted attribute context.
func (t Tag) Render() string {
	switch t.Kind {
	case KindScript:
		return "<script" + renderAttrs(t.Attrs) + "></script>"
	case KindStylesheet, KindPreload:
		return "<link" + renderAttrs(t.Attrs) + ">"
	default:
		return ""
	}
}

// Component exposes the tag to templ layouts.
func (t Tag) Component() templ.Component {
	return rawComponent(t.Render())
}

func renderAttrs(attrs []Attr) string {
	var sb strings.Builder
	for _, a := range attrs {
		if a.Value == "" {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(a.Name)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.Value))
		sb.WriteByte('"')
	}
	return sb.String()
}

// mergeAttrs overrides defaults with extra by name and appends the names
// defaults did not carry, keeping first-seen order.
func mergeAttrs(defaults []Attr, extra []Attr) []Attr {
	merged := append([]Attr(nil), defaults...)

	for _, e := range extra {
		replaced := false
		for i := range merged {
			if merged[i].Name == e.Name {
				merged[i].Value = e.Value
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, e)
		}
	}

	return merged
}

func rawComponent(markup string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}
