package inject

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMetaName is the name of the <meta> element the server publishes the token in.
const DefaultMetaName = "csrf-token"

// TokenSource yields the token published into a document. An empty string means none.
type TokenSource interface {
	Token(doc *html.Node) string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(doc *html.Node) string

// Token calls f(doc).
func (f TokenSourceFunc) Token(doc *html.Node) string {
	return f(doc)
}

// StaticToken returns a source that always yields token, whatever the document says.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(*html.Node) string { return token })
}

// MetaTokenSource reads the content of the first <meta name=Name> element.
type MetaTokenSource struct {
	Name string
}

// Token returns the meta element's content, or "" if the element is missing.
func (m MetaTokenSource) Token(doc *html.Node) string {
	if meta := findMeta(doc, m.name()); meta != nil {
		content, _ := getAttr(meta, "content")
		return content
	}
	return ""
}

func (m MetaTokenSource) name() string {
	if m.Name == "" {
		return DefaultMetaName
	}
	return m.Name
}

func findMeta(doc *html.Node, name string) *html.Node {
	for _, meta := range findElements(doc, atom.Meta) {
		if v, ok := getAttr(meta, "name"); ok && v == name {
			return meta
		}
	}
	return nil
}

// PublishToken sets the content of the <meta name=name> element to token. If the element
// does not exist it is appended to <head>. It reports false when the document has no head.
func PublishToken(doc *html.Node, name, token string) bool {
	if name == "" {
		name = DefaultMetaName
	}
	if meta := findMeta(doc, name); meta != nil {
		setAttr(meta, "content", token)
		return true
	}
	heads := findElements(doc, atom.Head)
	if len(heads) == 0 {
		return false
	}
	heads[0].AppendChild(&html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Meta,
		Data:     "meta",
		Attr: []html.Attribute{
			{Key: "name", Val: name},
			{Key: "content", Val: token},
		},
	})
	return true
}
