// Package render turns questions and surveys into SurveyJS documents.
//
// Templates produce indented JSON that is minified before it is stored.
// Element names carry the survey and question ids so submitted answers can be
// routed back: "s<survey>-q<question>-choice" and "s<survey>-q<question>-certainty".
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"text/template"

	"golang.org/x/text/message"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// Options controls document rendering
type Options struct {
	Locale       string
	Title        string
	ImageBaseURL string
	AuthPage     bool
}

// OptionsFromSettings collects render options from configuration
func OptionsFromSettings(settings *conf.Settings) Options {
	return Options{
		Locale:       settings.Render.Locale,
		Title:        settings.Render.Title,
		ImageBaseURL: settings.Render.ImageBaseURL,
		AuthPage:     settings.Generation.AuthPage,
	}
}

// Renderer renders question fragments and survey documents
type Renderer struct {
	opts      Options
	diseases  []datastore.Disease
	printer   *message.Printer
	templates *template.Template
}

// New creates a renderer offering diseases as diagnosis choices
func New(opts Options, diseases []datastore.Disease) (*Renderer, error) {
	printer, err := newPrinter(opts.Locale)
	if err != nil {
		return nil, err
	}

	r := &Renderer{opts: opts, diseases: diseases, printer: printer}

	funcs := template.FuncMap{
		"json":           toJSON,
		"tr":             r.translate,
		"zoomHTML":       zoomHTML,
		"comparisonHTML": r.comparisonHTML,
	}
	r.templates, err = template.New("render").Funcs(funcs).ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, errors.New(err).
			Component("render").
			Category(errors.CategoryRender).
			Build()
	}
	return r, nil
}

func (r *Renderer) translate(key string, args ...any) string {
	return r.printer.Sprintf(key, args...)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ElementPrefix returns the element name prefix of a question. Fragments
// stored on the question itself use surveyID 0.
func ElementPrefix(surveyID, questionID uint) string {
	if surveyID == 0 {
		return fmt.Sprintf("q%d", questionID)
	}
	return fmt.Sprintf("s%d-q%d", surveyID, questionID)
}

type elementNames struct {
	Image, Choice, Certainty, Metadata string
}

func namesFor(prefix string) elementNames {
	return elementNames{
		Image:     prefix + "-img",
		Choice:    prefix + "-choice",
		Certainty: prefix + "-certainty",
		Metadata:  prefix + "-metadata",
	}
}

// imageView is one zoomable picture inside a question
type imageView struct {
	ElementID string
	URL       string
	Caption   string
}

type questionView struct {
	Names     elementNames
	Image     imageView
	Reference imageView
	Left      imageView
	Right     imageView
	Diseases  []datastore.Disease
	Metadata  string
}

// ZoomTarget identifies an image and its zoom result container in a document
type ZoomTarget struct {
	ImageID  string
	ResultID string
}

// ZoomTargets lists the zoomable images a question renders with the given prefix
func ZoomTargets(prefix string, q *datastore.Question) []ZoomTarget {
	var ids []string
	switch q.Kind {
	case datastore.QuestionDiagnosis:
		ids = []string{prefix + "-image"}
	case datastore.QuestionComparison:
		ids = []string{prefix + "-reference", prefix + "-left", prefix + "-right"}
	}
	targets := make([]ZoomTarget, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, ZoomTarget{ImageID: id, ResultID: id + "-zoom"})
	}
	return targets
}

func (r *Renderer) view(prefix string, img *datastore.Image, role string) imageView {
	return imageView{
		ElementID: prefix + "-" + role,
		URL:       r.opts.ImageBaseURL + img.Filename,
	}
}

func zoomHTML(v imageView) string {
	var b strings.Builder
	b.WriteString(`<div class="img-zoom-container">`)
	if v.Caption != "" {
		fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(v.Caption))
	}
	fmt.Fprintf(&b, `<img id="%s" src="%s"/><div id="%s-zoom" class="img-zoom-result"></div></div>`,
		html.EscapeString(v.ElementID), html.EscapeString(v.URL), html.EscapeString(v.ElementID))
	return b.String()
}

func (r *Renderer) comparisonHTML(v questionView) string {
	return `<div class="comparison">` +
		zoomHTML(v.Reference) +
		`<div class="comparison-candidates">` + zoomHTML(v.Left) + zoomHTML(v.Right) + `</div></div>`
}

func metadataHTML(fields ...[2]string) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, `<div id="%s">%s</div>`, f[0], html.EscapeString(f[1]))
	}
	return b.String()
}

// QuestionFragment renders the SurveyJS elements of a question as a minified JSON array.
// Images referenced by the question must be loaded.
func (r *Renderer) QuestionFragment(q *datastore.Question, surveyID uint) (string, error) {
	prefix := ElementPrefix(surveyID, q.ID)
	view := questionView{Names: namesFor(prefix), Diseases: r.diseases}

	var name string
	switch q.Kind {
	case datastore.QuestionDiagnosis:
		if q.Image == nil {
			return "", r.missingImage(q, "image")
		}
		name = "diagnosis"
		view.Image = r.view(prefix, q.Image, "image")
		view.Metadata = metadataHTML(
			[2]string{"question_id", fmt.Sprint(q.ID)},
			[2]string{"image_id", fmt.Sprint(q.Image.ID)},
			[2]string{"image_filename", q.Image.Filename},
		)
	case datastore.QuestionComparison:
		if q.ReferenceImage == nil || q.CandidateA == nil || q.CandidateB == nil {
			return "", r.missingImage(q, "reference or candidate")
		}
		name = "comparison"
		view.Reference = r.view(prefix, q.ReferenceImage, "reference")
		view.Reference.Caption = r.translate(msgReference)
		view.Left = r.view(prefix, q.CandidateA, "left")
		view.Right = r.view(prefix, q.CandidateB, "right")
		view.Metadata = metadataHTML(
			[2]string{"question_id", fmt.Sprint(q.ID)},
			[2]string{"reference_filename", q.ReferenceImage.Filename},
			[2]string{"left_filename", q.CandidateA.Filename},
			[2]string{"right_filename", q.CandidateB.Filename},
		)
	default:
		return "", UnsupportedKindError(q.Kind)
	}

	return r.execute(name, view)
}

func (r *Renderer) missingImage(q *datastore.Question, what string) error {
	return errors.Newf("question %d has no %s image loaded", q.ID, what).
		Component("render").
		Category(errors.CategoryRender).
		Context("question_id", q.ID).
		Build()
}

// UnsupportedKindError reports a question kind without a renderer or generator
func UnsupportedKindError(kind datastore.QuestionKind) error {
	return errors.Newf("question type %d is not supported", kind).
		Component("render").
		Category(errors.CategoryUnsupported).
		Context("question_type", int(kind)).
		Build()
}

type pageView struct {
	Name     string
	Title    string
	Elements string
}

type surveyView struct {
	Title    string
	AuthPage bool
	Pages    []pageView
}

// SurveyContent renders the full document of a survey: the optional
// identification page, one page per question in order and the localized navigation texts.
func (r *Renderer) SurveyContent(survey *datastore.Survey, questions []datastore.Question) (string, error) {
	view := surveyView{Title: r.opts.Title, AuthPage: survey.AuthPage}

	for i := range questions {
		fragment, err := r.QuestionFragment(&questions[i], survey.ID)
		if err != nil {
			return "", err
		}
		view.Pages = append(view.Pages, pageView{
			Name:     fmt.Sprintf("page-%d", i+1),
			Title:    r.translate(msgPageTitle, i+1),
			Elements: fragment,
		})
	}

	return r.execute("survey", view)
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.New(err).
			Component("render").
			Category(errors.CategoryRender).
			Context("template", name).
			Build()
	}
	return Minify(buf.String()), nil
}

// Minify strips leading and trailing whitespace from every line, drops empty
// lines and joins the rest without a separator.
func Minify(s string) string {
	lines := strings.Split(s, "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString(line)
		}
	}
	return b.String()
}
