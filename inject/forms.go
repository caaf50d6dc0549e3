package inject

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultFieldName is the name of the hidden form field that carries the token.
const DefaultFieldName = "csrf_token"

// AugmentForms appends a hidden input named field with value token to every form under
// doc that has no input of that name yet. It returns the number of forms changed.
func AugmentForms(doc *html.Node, field, token string) int {
	if field == "" {
		field = DefaultFieldName
	}
	added := 0
	for _, form := range findElements(doc, atom.Form) {
		if hasTokenField(form, field) {
			continue
		}
		form.AppendChild(newHiddenInput(field, token))
		added++
	}
	return added
}

func hasTokenField(form *html.Node, field string) bool {
	for _, input := range findElements(form, atom.Input) {
		if name, ok := getAttr(input, "name"); ok && name == field {
			return true
		}
	}
	return false
}

func newHiddenInput(field, token string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Input,
		Data:     "input",
		Attr: []html.Attribute{
			{Key: "type", Val: "hidden"},
			{Key: "name", Val: field},
			{Key: "value", Val: token},
		},
	}
}
