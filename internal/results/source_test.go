package results

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
)

const resultsURL = "https://surveys.example.org/api/results"

func jasonRecord(s string) (*jason.Object, error) {
	return jason.NewObjectFromBytes([]byte(s))
}

func TestHTTPSourceSendsBearerToken(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", resultsURL,
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "Bearer secret" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"Data": []}`), nil
		})

	data, err := NewHTTPSource(resultsURL, "secret", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Data": []}`, string(data))

	_, err = NewHTTPSource(resultsURL, "wrong", time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))

	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestHTTPSourceNetworkFailure(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", resultsURL, httpmock.NewErrorResponder(assert.AnError))

	_, err := NewHTTPSource(resultsURL, "", 0).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestLoadFromHTTP(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	f := newFixture(t)
	body := `{"Data": [{"q-token": "` + testToken + `", "` + f.key(f.comparison, "choice") + `": "right"}]}`
	httpmock.RegisterResponder("GET", resultsURL, httpmock.NewStringResponder(http.StatusOK, body))

	report, err := f.ingester.Load(context.Background(), NewHTTPSource(resultsURL, "", time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Answers)
}

func TestFileSource(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Data": []}`), 0o600))

	data, err := FileSource{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Data": []}`, string(data))

	_, err = FileSource{Path: path + ".missing"}.Fetch(context.Background())
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestSourceFromSettings(t *testing.T) {
	t.Parallel()
	settings := conf.NewTestSettings(t.TempDir())

	_, err := SourceFromSettings(settings, "")
	assert.True(t, errors.IsConfiguration(err))

	src, err := SourceFromSettings(settings, "results.json")
	require.NoError(t, err)
	assert.Equal(t, "results.json", src.String())

	settings.Results.URL = resultsURL
	src, err = SourceFromSettings(settings, "")
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)
}
