//go:build property
// +build property

package tags

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/net/html"
)

func attributeValue() gopter.Gen {
	return gen.RegexMatch(`^[aZ0 "'<>&=/é]{0,24}$`)
}

func TestTagProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: any attribute value survives an HTML parse unchanged
	properties.Property("escaped values round-trip", prop.ForAll(
		func(value string) bool {
			if value == "" {
				return true
			}
			markup := Tag{Kind: KindPreload, Attrs: []Attr{{"rel", "preload"}, {"title", value}}}.Render()
			tokenizer := html.NewTokenizer(strings.NewReader(markup))
			if tokenizer.Next() != html.StartTagToken {
				return false
			}
			token := tokenizer.Token()
			for _, a := range token.Attr {
				if a.Key == "title" {
					return a.Val == value
				}
			}
			return false
		},
		attributeValue(),
	))

	// Property: escaping never opens a second element
	properties.Property("single element", prop.ForAll(
		func(value string) bool {
			markup := Tag{Kind: KindScript, Attrs: []Attr{{"src", value}}}.Render()
			return strings.Count(markup, "<") == 2
		},
		attributeValue(),
	))

	properties.TestingRun(t)
}
