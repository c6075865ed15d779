package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

func newMock(t *testing.T) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSource(db), mock
}

func strp(s string) *string { return &s }

func TestFetchSamples(t *testing.T) {
	src, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"sample_date", "site", "tot_coli_conc", "ecoli_conc", "ph", "turbidity"}).
		AddRow("6/3/2024", "PEAV@OLDB", ">2419.6", "365.4", "7.1", nil).
		AddRow("6/10/2024", "lull@lull", nil, "", "7.4", "3")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sample_date, site, tot_coli_conc, ecoli_conc, ph, turbidity FROM "creek_samples" ORDER BY id`)).
		WillReturnRows(rows)

	got, err := src.FetchSamples(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.RawSample{
		SiteToken:        "PEAV@OLDB",
		Timestamp:        "6/3/2024",
		TotalColiformRaw: strp(">2419.6"),
		EcoliRaw:         strp("365.4"),
		PHRaw:            strp("7.1"),
	}, got[0])
	assert.Nil(t, got[1].TotalColiformRaw)
	assert.Nil(t, got[1].EcoliRaw, "empty text is an absent value")
	assert.Equal(t, "3", *got[1].TurbidityRaw)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchSamples_QueryError(t *testing.T) {
	src, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	_, err := src.FetchSamples(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query samples")
}

func TestFetchCatalog(t *testing.T) {
	src, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"site", "lat", "lon", "name"}).
		AddRow("peav@oldb", 33.7901, -84.3250, "Peavine creek/Old briarcliff way").
		AddRow("lull@lull", 33.7950, -84.3190, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT site, lat, lon, name FROM "creek_sites" ORDER BY position, site`)).WillReturnRows(rows)

	got, err := src.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.SiteRecord{
		{Code: "peav@oldb", DisplayName: "Peavine creek/Old briarcliff way", Lat: 33.7901, Lon: -84.3250},
		{Code: "lull@lull", Lat: 33.7950, Lon: -84.3190},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchCatalog_ScanError(t *testing.T) {
	src, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"site", "lat", "lon", "name"}).AddRow("lull@lull", "north", -84.3, nil)
	mock.ExpectQuery("SELECT site").WillReturnRows(rows)

	_, err := src.FetchCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan site")
}

func TestEnsureSchema(t *testing.T) {
	src, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "creek_sites" (
	position BIGSERIAL NOT NULL,`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "creek_samples"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, src.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSamples(t *testing.T) {
	src, mock := newMock(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "creek_samples"`))
	prep.ExpectExec().WithArgs("2024-06-03", "peav@oldb", nil, "200", nil, nil).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("2024-06-10", "peav@oldb", ">2419.6", "1500", "7.2", nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := src.InsertSamples(context.Background(), []domain.RawSample{
		{SiteToken: "peav@oldb", Timestamp: "2024-06-03", EcoliRaw: strp("200")},
		{SiteToken: "peav@oldb", Timestamp: "2024-06-10", TotalColiformRaw: strp(">2419.6"), EcoliRaw: strp("1500"), PHRaw: strp("7.2")},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSites_RollsBackOnError(t *testing.T) {
	src, mock := newMock(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "creek_sites"`))
	prep.ExpectExec().WithArgs("lull@lull", 33.795, -84.319, nil).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := src.InsertSites(context.Background(), []domain.SiteRecord{{Code: "lull@lull", Lat: 33.795, Lon: -84.319}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert row 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSites_UpsertKeepsPosition(t *testing.T) {
	src, mock := newMock(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`ON CONFLICT \(site\) DO UPDATE SET lat = EXCLUDED.lat, lon = EXCLUDED.lon, name = EXCLUDED.name$`)
	prep.ExpectExec().WithArgs("peav@oldb", 33.79, -84.325, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := src.InsertSites(context.Background(), []domain.SiteRecord{{Code: "peav@oldb", Lat: 33.79, Lon: -84.325}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
