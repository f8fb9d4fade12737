// Package rewrite scans HTML documents for shortenable links and rewrites
// them in place.
package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Resolver maps a qualifying absolute URL to its replacement. It is called
// exactly once per distinct URL in a document.
type Resolver func(ctx context.Context, originalURL string) (string, error)

// targetAttrs maps each targeted element to the attribute that may carry a
// shortenable link. A link element is only targeted when rel=stylesheet.
var targetAttrs = map[string]string{
	"a":      "href",
	"area":   "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
}

// Qualifies reports whether an attribute value is eligible for shortening:
// after trimming whitespace it must carry an http or https scheme. This
// excludes mailto:, tel:, javascript:, fragments, relative paths, empty
// values and every other scheme.
func Qualifies(val string) bool {
	v := strings.TrimSpace(val)
	if v == "" {
		return false
	}
	lower := strings.ToLower(v)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isTargeted(tok html.Token) (string, bool) {
	attr, ok := targetAttrs[tok.Data]
	if !ok {
		return "", false
	}
	if tok.Data == "link" && !hasRelStylesheet(tok) {
		return "", false
	}
	return attr, true
}

func hasRelStylesheet(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "rel" && strings.EqualFold(strings.TrimSpace(a.Val), "stylesheet") {
			return true
		}
	}
	return false
}

// CollectLinks returns the distinct qualifying link values of doc in
// document order. Values are trimmed of surrounding whitespace.
func CollectLinks(doc []byte) []string {
	seen := make(map[string]struct{})
	var links []string

	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		attr, ok := isTargeted(tok)
		if !ok {
			continue
		}
		for _, a := range tok.Attr {
			if a.Key != attr || !Qualifies(a.Val) {
				continue
			}
			v := strings.TrimSpace(a.Val)
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				links = append(links, v)
			}
		}
	}
}

// Rewrite replaces every qualifying link in doc with the value produced by
// resolve, calling resolve once per distinct link. Content outside the
// rewritten tags passes through byte for byte. If any resolution fails the
// whole operation is aborted and no document is returned.
func Rewrite(ctx context.Context, doc []byte, resolve Resolver) ([]byte, error) {
	links := CollectLinks(doc)
	if len(links) == 0 {
		return doc, nil
	}

	// request-scoped table: distinct original value -> replacement
	resolved := make(map[string]string, len(links))
	for _, link := range links {
		replacement, err := resolve(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", link, err)
		}
		resolved[link] = replacement
	}

	var out bytes.Buffer
	out.Grow(len(doc))

	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out.Bytes(), nil
		}

		raw := z.Raw()
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}

		tok := z.Token()
		attr, ok := isTargeted(tok)
		if !ok {
			out.Write(raw)
			continue
		}

		changed := false
		for i, a := range tok.Attr {
			if a.Key == attr && Qualifies(a.Val) {
				tok.Attr[i].Val = resolved[strings.TrimSpace(a.Val)]
				changed = true
			}
		}
		if !changed {
			out.Write(raw)
			continue
		}
		out.WriteString(tok.String())
	}
}
