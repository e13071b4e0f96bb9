package httpcontroller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/notification"
	"github.com/tphakala/surveygen/internal/observability"
	"github.com/tphakala/surveygen/internal/render"
	"github.com/tphakala/surveygen/internal/results"
)

func TestMain(m *testing.M) {
	datastore.SetLogger(logger.NewDiscardLogger())
	results.SetLogger(logger.NewDiscardLogger())
	notification.SetLogger(logger.NewDiscardLogger())
	SetLogger(logger.NewDiscardLogger())
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		// result lookup cache janitor lives as long as the ingester
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

const testToken = "tok-marko"

type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSender) Send(message string, _ *stypes.Params) []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type fixture struct {
	server   *Server
	store    datastore.Interface
	sender   *recordingSender
	survey   *datastore.Survey
	question *datastore.Question
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	settings := conf.NewTestSettings(t.TempDir())
	settings.Export.ResultsURL = "/api/v1/results"

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	require.NoError(t, datastore.SeedDiseases(ctx, store, settings.Diseases))
	diseases, err := store.ListDiseases(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SaveUser(ctx, &datastore.User{Name: "Marko", AccessToken: testToken}))

	img := datastore.NewImage("/data/drive", "21_training.tif")
	require.NoError(t, store.SaveImages(ctx, []*datastore.Image{img}))
	question := &datastore.Question{Kind: datastore.QuestionDiagnosis, ImageID: &img.ID}
	require.NoError(t, store.SaveQuestions(ctx, []*datastore.Question{question}))

	survey := &datastore.Survey{Kind: datastore.SurveyRegular, AuthPage: true}
	require.NoError(t, store.SaveSurvey(ctx, survey))
	require.NoError(t, store.AssignQuestions(ctx, survey, []datastore.Question{*question}))
	loaded, err := store.SurveyQuestions(ctx, survey)
	require.NoError(t, err)
	renderer, err := render.New(render.OptionsFromSettings(settings), diseases)
	require.NoError(t, err)
	survey.Content, err = renderer.SurveyContent(survey, loaded)
	require.NoError(t, err)
	require.NoError(t, store.SaveSurvey(ctx, survey))

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	sender := &recordingSender{}
	notifier := notification.NewWithSender(sender, logger.NewDiscardLogger())

	return &fixture{
		server:   New(settings, store, m, notifier),
		store:    store,
		sender:   sender,
		survey:   survey,
		question: question,
	}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Echo.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) payload(choice string, certainty any) string {
	prefix := fmt.Sprintf("s%d-q%d", f.survey.ID, f.question.ID)
	return fmt.Sprintf(`{"Data":[{"q-token":%q,"%s-choice":%q,"%s-certainty":%v}]}`,
		testToken, prefix, choice, prefix, certainty)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestPostResultsStoresAnswers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/results", f.payload("diabetic_retinopathy", 6))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"records":1,"failed":0,"answers":1}`, rec.Body.String())

	answers, err := f.store.ListAnswers(context.Background(), f.survey.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "diabetic_retinopathy", answers[0].Choice)
	require.NotNil(t, answers[0].Certainty)
	assert.Equal(t, 6, *answers[0].Certainty)

	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "from 1 record(s)")
}

func TestPostResultsReportsRejectedRecords(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/results", f.payload("diabetic_retinopathy", 9))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed":1`)
	assert.Contains(t, rec.Body.String(), "record 0")
}

func TestPostResultsMalformedPayload(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`not json`, `{"Records":[]}`} {
		rec := f.do(http.MethodPost, "/api/v1/results", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "Data array")
	}
	assert.Empty(t, f.sender.messages)
}

func TestGetSurveyDocument(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, fmt.Sprintf("/surveys/%d", f.survey.ID), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	assert.Contains(t, body, "surveyJSON")
	assert.Contains(t, body, fmt.Sprintf("s%d-q%d", f.survey.ID, f.question.ID))
	assert.Contains(t, body, "/api/v1/results")
}

func TestGetSurveyErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		target string
		status int
	}{
		{"/surveys/999", http.StatusNotFound},
		{"/surveys/abc", http.StatusBadRequest},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	f := newFixture(t)

	f.do(http.MethodGet, "/healthz", "")
	rec := f.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)

	addr, err := f.server.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
