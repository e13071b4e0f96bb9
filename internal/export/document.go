package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/render"
)

//go:embed templates/document.html.tmpl
var templateFS embed.FS

var documentTemplate = template.Must(template.ParseFS(templateFS, "templates/document.html.tmpl"))

// DocumentOptions configures the stand-alone HTML document of a survey
type DocumentOptions struct {
	Lang       string
	Title      string
	ResultsURL string
}

type documentView struct {
	Lang        string
	Title       string
	Survey      template.JS
	ZoomTargets []render.ZoomTarget
	ResultsURL  string
}

// Document wraps survey content in an HTML page that loads SurveyJS, attaches the
// zoom helper to every question image and, when a results URL is set, posts the
// answers there as {"Data": [answers]}. Questions must be in survey order.
func Document(survey *datastore.Survey, questions []datastore.Question, opts DocumentOptions) ([]byte, error) {
	if !json.Valid([]byte(survey.Content)) {
		return nil, errors.Newf("survey %d has no valid content", survey.ID).
			Component("export").
			Category(errors.CategoryRender).
			Context("survey_id", survey.ID).
			Build()
	}

	view := documentView{
		Lang:        opts.Lang,
		Title:       opts.Title,
		Survey:      template.JS(survey.Content), //nolint:gosec // content is rendered JSON
		ZoomTargets: []render.ZoomTarget{},
		ResultsURL:  opts.ResultsURL,
	}
	if view.Title == "" {
		view.Title = fmt.Sprintf("Survey %d", survey.ID)
	}
	for i := range questions {
		prefix := render.ElementPrefix(survey.ID, questions[i].ID)
		view.ZoomTargets = append(view.ZoomTargets, render.ZoomTargets(prefix, &questions[i])...)
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, view); err != nil {
		return nil, errors.New(err).
			Component("export").
			Category(errors.CategoryRender).
			Context("survey_id", survey.ID).
			Build()
	}
	return buf.Bytes(), nil
}
