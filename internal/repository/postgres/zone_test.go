package postgres_test

import (
	"context"
	"testing"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zoneCols = []string{"id", "kind", "st_asgeojson", "label", "version", "created_by", "created_at", "updated_at"}

func TestZoneRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewZoneRepository(db)
	adminID := uuid.New()
	zone := &domain.Zone{
		Kind:      domain.ZoneKindRed,
		Polygon:   domain.Polygon{{{36.81, -1.29}, {36.83, -1.29}, {36.83, -1.27}, {36.81, -1.29}}},
		CreatedBy: &adminID,
	}

	mock.ExpectExec("INSERT INTO zones (.+) ST_GeomFromGeoJSON\\(\\$3\\)").
		WithArgs(sqlmock.AnyArg(), domain.ZoneKindRed,
			`{"coordinates":[[[36.81,-1.29],[36.83,-1.29],[36.83,-1.27],[36.81,-1.29]]],"type":"Polygon"}`,
			nil, 1, &adminID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), zone))
	assert.NotEqual(t, uuid.Nil, zone.ID)
	assert.Equal(t, 1, zone.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZoneRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewZoneRepository(db)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM zones WHERE updated_at > \\$1 ORDER BY created_at").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows(zoneCols).
			AddRow(id.String(), "green", `{"type":"Polygon","coordinates":[[[36.8,-1.3],[36.9,-1.3],[36.9,-1.2],[36.8,-1.3]]]}`,
				"CBD parking", int64(2), nil, now, now))

	zones, err := repo.List(context.Background(), &since)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, domain.ZoneKindGreen, zones[0].Kind)
	assert.Equal(t, "CBD parking", *zones[0].Label)
	assert.Equal(t, 2, zones[0].Version)
	assert.Nil(t, zones[0].CreatedBy)
	assert.Equal(t, []float64{36.9, -1.2}, zones[0].Polygon[0][2])

	mock.ExpectQuery("SELECT (.+) FROM zones ORDER BY created_at").
		WillReturnRows(sqlmock.NewRows(zoneCols).AddRow(id.String(), "red", `{"type":"Point"}`, nil, int64(1), nil, now, now))

	_, err = repo.List(context.Background(), nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
