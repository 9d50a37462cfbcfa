// Package htmlpage builds form snapshots from static HTML so the login-field
// detector can run without a browser.
package htmlpage

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// Layout facts a static page cannot know are filled with these values so a
// field only counts as hidden when its markup says so.
const (
	defaultSize    = 1
	defaultOpacity = 1
)

// Parse reads an HTML document and returns every input and button in
// document order. Visibility is derived from the hidden attribute,
// type="hidden" and inline styles on the element and its ancestors.
func Parse(r io.Reader, pageURL string) (model.FormSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.FormSnapshot{}, fmt.Errorf("parse html: %w", err)
	}

	forms := doc.Find("form")
	formIndex := make(map[*html.Node]int, forms.Length())
	formByID := make(map[string]int)
	forms.Each(func(i int, sel *goquery.Selection) {
		formIndex[sel.Get(0)] = i
		if id, ok := sel.Attr("id"); ok && id != "" {
			formByID[id] = i
		}
	})

	snap := model.FormSnapshot{URL: pageURL, Forms: forms.Length()}

	doc.Find("input, button").Each(func(i int, sel *goquery.Selection) {
		field := model.FormField{
			Ref:          fmt.Sprintf("f%d", i),
			Tag:          goquery.NodeName(sel),
			Type:         strings.ToLower(strings.TrimSpace(sel.AttrOr("type", ""))),
			Name:         sel.AttrOr("name", ""),
			ElementID:    sel.AttrOr("id", ""),
			Placeholder:  sel.AttrOr("placeholder", ""),
			AriaLabel:    sel.AttrOr("aria-label", ""),
			Autocomplete: sel.AttrOr("autocomplete", ""),
			Class:        sel.AttrOr("class", ""),
			Value:        sel.AttrOr("value", ""),
			Form:         model.NoForm,
			Order:        i,
		}
		_, field.Enabled = sel.Attr("data-pm-enabled")

		switch {
		case field.Tag == "button":
			if field.Type == "" {
				field.Type = "submit"
			}
			field.Text = strings.TrimSpace(sel.Text())
		case field.Type == "submit" || field.Type == "button" || field.Type == "reset":
			field.Text = field.Value
		}

		if owner, ok := sel.Attr("form"); ok {
			if idx, found := formByID[owner]; found {
				field.Form = idx
			}
		}
		if field.Form == model.NoForm {
			if enclosing := sel.Closest("form"); enclosing.Length() > 0 {
				field.Form = formIndex[enclosing.Get(0)]
			}
		}

		applyLayout(&field, sel)
		snap.Fields = append(snap.Fields, field)
	})

	return snap, nil
}

// applyLayout resolves display, visibility, opacity and size from markup.
// Display and opacity compound down the tree; the nearest visibility wins.
func applyLayout(field *model.FormField, sel *goquery.Selection) {
	field.Display = "inline"
	field.Visibility = "visible"
	field.Opacity = defaultOpacity
	field.Width = defaultSize
	field.Height = defaultSize

	if field.Type == "hidden" {
		field.Display = "none"
	}

	own := inlineStyle(sel)
	if v, ok := own["width"]; ok {
		field.Width = cssLength(v, defaultSize)
	} else if v, ok := sel.Attr("width"); ok {
		field.Width = cssLength(v, defaultSize)
	}
	if v, ok := own["height"]; ok {
		field.Height = cssLength(v, defaultSize)
	} else if v, ok := sel.Attr("height"); ok {
		field.Height = cssLength(v, defaultSize)
	}

	visibilitySet := false
	chain := sel.AddSelection(sel.Parents())
	chain.Each(func(_ int, node *goquery.Selection) {
		if _, hidden := node.Attr("hidden"); hidden {
			field.Display = "none"
		}

		style := inlineStyle(node)
		if style["display"] == "none" {
			field.Display = "none"
		}
		if v, ok := style["visibility"]; ok && !visibilitySet {
			field.Visibility = v
			visibilitySet = true
		}
		if v, ok := style["opacity"]; ok {
			if o, err := strconv.ParseFloat(v, 64); err == nil {
				field.Opacity *= o
			}
		}
	})
}

// inlineStyle parses a style attribute into lower-cased property/value pairs.
func inlineStyle(sel *goquery.Selection) map[string]string {
	raw, ok := sel.Attr("style")
	if !ok || raw == "" {
		return nil
	}

	props := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		props[strings.ToLower(strings.TrimSpace(name))] = strings.ToLower(value)
	}
	return props
}

// cssLength reads a length such as "0", "0px" or "120px". Anything it cannot
// read, including percentages and auto, yields fallback.
func cssLength(v string, fallback float64) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}
