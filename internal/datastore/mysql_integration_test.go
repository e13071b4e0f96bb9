package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/surveygen/internal/conf"
)

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := mysqlDSN(&conf.MySQLSettings{Host: "db", Port: 3307, Username: "u", Password: "p@ss", Database: "surveys"})
	assert.Contains(t, dsn, "u:p@ss@tcp(db:3307)/surveys")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestMySQLConfigValidation(t *testing.T) {
	t.Parallel()

	settings := conf.NewTestSettings(t.TempDir())
	settings.Database.Type = conf.DatabaseMySQL
	settings.Database.MySQL = conf.MySQLSettings{Port: 3306, Database: "x"}

	store := New(settings)
	require.IsType(t, &MySQLStore{}, store)
	assert.Error(t, store.Open())
}

// TestMySQLStoreIntegration runs the question pool queries against a real MySQL server.
func TestMySQLStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MySQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("surveygen"),
		tcmysql.WithUsername("surveygen"),
		tcmysql.WithPassword("surveygen"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := conf.NewTestSettings(t.TempDir())
	settings.Database.Type = conf.DatabaseMySQL
	settings.Database.MySQL = conf.MySQLSettings{
		Host:     host,
		Port:     port.Int(),
		Username: "surveygen",
		Password: "surveygen",
		Database: "surveygen",
	}

	store := createDatabase(t, settings)
	require.NoError(t, SeedDiseases(ctx, store, conf.DefaultDiseases))

	questions := saveQuestions(t, store, 4, QuestionDiagnosis)
	survey := &Survey{Kind: SurveyRegular}
	require.NoError(t, store.SaveSurvey(ctx, survey))
	require.NoError(t, store.AssignQuestions(ctx, survey, []Question{*questions[1]}))

	pool, err := store.FindUnassignedQuestions(ctx, []QuestionKind{QuestionDiagnosis})
	require.NoError(t, err)
	assert.Len(t, pool, 3)

	loaded, err := store.GetQuestion(ctx, questions[0].ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Image)

	err = store.SaveImages(ctx, []*Image{NewImage("/x", loaded.Image.Filename)})
	require.Error(t, err)
	assert.True(t, IsConflict(err), "duplicate entry maps to a conflict")
}
