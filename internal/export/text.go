package export

import (
	"fmt"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"

	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
)

// PlainText renders survey content as readable text: one block per page with the
// question titles, choices and the visible text of html elements. Hidden elements
// are skipped.
func PlainText(survey *datastore.Survey) (string, error) {
	doc, err := jason.NewObjectFromBytes([]byte(survey.Content))
	if err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileParsing).
			Context("survey_id", survey.ID).
			Build()
	}

	var b strings.Builder
	if title, err := doc.GetString("title"); err == nil {
		fmt.Fprintf(&b, "%s\n\n", title)
	}

	pages, err := doc.GetObjectArray("pages")
	if err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileParsing).
			Context("survey_id", survey.ID).
			Context("field", "pages").
			Build()
	}

	for _, page := range pages {
		title, _ := page.GetString("title")
		fmt.Fprintf(&b, "== %s ==\n", title)

		elements, _ := page.GetObjectArray("elements")
		for _, element := range elements {
			writeElement(&b, element)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func writeElement(b *strings.Builder, element *jason.Object) {
	if visible, err := element.GetBoolean("visible"); err == nil && !visible {
		return
	}

	kind, _ := element.GetString("type")
	switch kind {
	case "html":
		markup, _ := element.GetString("html")
		if text := strings.TrimSpace(html2text.HTML2Text(markup)); text != "" {
			fmt.Fprintf(b, "%s\n", text)
		}
	case "radiogroup":
		title, _ := element.GetString("title")
		fmt.Fprintf(b, "%s\n", title)
		choices, _ := element.GetObjectArray("choices")
		for _, choice := range choices {
			value, _ := choice.GetString("value")
			text, _ := choice.GetString("text")
			fmt.Fprintf(b, "  [%s] %s\n", value, text)
		}
		if hasNone, err := element.GetBoolean("hasNone"); err == nil && hasNone {
			noneText, _ := element.GetString("noneText")
			fmt.Fprintf(b, "  [none] %s\n", noneText)
		}
	case "rating":
		title, _ := element.GetString("title")
		low, _ := element.GetInt64("rateMin")
		high, _ := element.GetInt64("rateMax")
		fmt.Fprintf(b, "%s (%d-%d)\n", title, low, high)
	default:
		title, _ := element.GetString("title")
		fmt.Fprintf(b, "%s: ____\n", title)
	}
}
