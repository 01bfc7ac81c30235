package metadata

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"pkt.systems/webclip/schema"
)

// Extract pulls page metadata out of an HTML document: title, meta
// description, open-graph preview image, and favicon, with relative
// URLs resolved against the page URL. Parse errors on real-world HTML
// are rare since the parser recovers, but a hard failure returns the
// zero metadata with the page URL filled in.
func Extract(pageURL string, document string) schema.PageMetadata {
	meta := schema.PageMetadata{URL: pageURL}
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return meta
	}
	base, _ := url.Parse(pageURL)
	walk(root, base, &meta)
	if meta.Favicon == "" && base != nil {
		meta.Favicon = base.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
	}
	return meta
}

func walk(node *html.Node, base *url.URL, meta *schema.PageMetadata) {
	if node.Type == html.ElementNode {
		switch node.Data {
		case "title":
			if meta.Title == "" {
				meta.Title = strings.TrimSpace(textContent(node))
			}
		case "meta":
			name := strings.ToLower(attr(node, "name"))
			property := strings.ToLower(attr(node, "property"))
			content := attr(node, "content")
			switch {
			case name == "description" && meta.Description == "":
				meta.Description = strings.TrimSpace(content)
			case property == "og:description" && meta.Description == "":
				meta.Description = strings.TrimSpace(content)
			case property == "og:image" && meta.Preview == "":
				meta.Preview = resolve(base, content)
			case property == "og:title" && meta.Title == "":
				meta.Title = strings.TrimSpace(content)
			}
		case "link":
			rel := strings.ToLower(attr(node, "rel"))
			if meta.Favicon == "" && (rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon") {
				meta.Favicon = resolve(base, attr(node, "href"))
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walk(child, base, meta)
	}
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(node *html.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
