package page

import (
	"strings"
)

// SelectFirst returns the first selector that matches at least one element,
// or "" when none does. A candidate that fails to compile or errors in the
// adapter is skipped.
func SelectFirst(h Handle, selectors []string) string {
	_, selector := First(h, selectors)
	return selector
}

// First returns the first element of the first matching selector.
func First(h Handle, selectors []string) (Element, string) {
	elements, selector := All(h, selectors)
	if len(elements) == 0 {
		return nil, ""
	}
	return elements[0], selector
}

// All returns every element of the first matching selector.
func All(h Handle, selectors []string) ([]Element, string) {
	if h == nil {
		return nil, ""
	}
	for _, selector := range selectors {
		if elements := tryFind(h.FindAll, selector); len(elements) > 0 {
			return elements, selector
		}
	}
	return nil, ""
}

// AllWithin is All scoped to the children of parent.
func AllWithin(parent Element, selectors []string) ([]Element, string) {
	if parent == nil {
		return nil, ""
	}
	for _, selector := range selectors {
		if elements := tryFind(parent.FindAll, selector); len(elements) > 0 {
			return elements, selector
		}
	}
	return nil, ""
}

// Text resolves selectors and returns the first match's text with
// whitespace collapsed, or "".
func Text(h Handle, selectors []string) string {
	el, _ := First(h, selectors)
	return ElementText(el)
}

// Attr resolves selectors and returns the named attribute of the first
// match, trimmed, or "".
func Attr(h Handle, selectors []string, name string) string {
	el, _ := First(h, selectors)
	return ElementAttr(el, name)
}

// HTML resolves selectors and returns the first match's inner HTML, or "".
func HTML(h Handle, selectors []string) string {
	el, _ := First(h, selectors)
	if el == nil {
		return ""
	}
	html, err := el.HTML()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

// ElementText is the whitespace-normalised text of el, "" on error.
func ElementText(el Element) string {
	if el == nil {
		return ""
	}
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// ElementAttr is the trimmed attribute value of el, "" on error.
func ElementAttr(el Element, name string) string {
	if el == nil {
		return ""
	}
	value, err := el.Attr(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func tryFind(find func(string) ([]Element, error), selector string) (elements []Element) {
	defer func() {
		if r := recover(); r != nil {
			elements = nil
		}
	}()
	found, err := find(selector)
	if err != nil {
		return nil
	}
	return found
}
