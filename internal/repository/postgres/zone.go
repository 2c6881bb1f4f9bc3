package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const zoneColumns = `id, kind, ST_AsGeoJSON(polygon), label, version, created_by, created_at, updated_at`

type zoneRepository struct {
	db DBTX
}

func NewZoneRepository(db DBTX) repository.ZoneRepository {
	return &zoneRepository{db: db}
}

func (r *zoneRepository) Create(ctx context.Context, z *domain.Zone) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	if z.Version == 0 {
		z.Version = 1
	}
	now := time.Now().UTC()
	z.CreatedAt = now
	z.UpdatedAt = now

	geo, err := json.Marshal(map[string]any{"type": "Polygon", "coordinates": z.Polygon})
	if err != nil {
		return fmt.Errorf("encode zone polygon: %w", err)
	}
	query := `INSERT INTO zones (id, kind, polygon, label, version, created_by, created_at, updated_at)
	          VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326), $4, $5, $6, $7, $8)`
	logger.DatabaseCall("INSERT", "zones", "zoneID", z.ID)
	_, err = r.db.ExecContext(ctx, query, z.ID, z.Kind, string(geo), z.Label, z.Version, z.CreatedBy, z.CreatedAt, z.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "zoneID", z.ID)
	return err
}

func (r *zoneRepository) List(ctx context.Context, since *time.Time) ([]domain.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones`
	var args []any
	if since != nil {
		query += ` WHERE updated_at > $1`
		args = append(args, *since)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := []domain.Zone{}
	for rows.Next() {
		var (
			z         domain.Zone
			geo       string
			label     sql.NullString
			createdBy uuid.NullUUID
		)
		if err := rows.Scan(&z.ID, &z.Kind, &geo, &label, &z.Version, &createdBy, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, err
		}
		if z.Polygon, err = parsePolygon(geo); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.ID, err)
		}
		if label.Valid {
			z.Label = &label.String
		}
		z.CreatedBy = uuidPtr(createdBy)
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// parsePolygon reads the coordinates out of a GeoJSON geometry produced by ST_AsGeoJSON.
func parsePolygon(geo string) (domain.Polygon, error) {
	if !gjson.Valid(geo) {
		return nil, fmt.Errorf("invalid GeoJSON")
	}
	coords := gjson.Get(geo, "coordinates")
	if !coords.IsArray() {
		return nil, fmt.Errorf("GeoJSON has no coordinates")
	}
	var polygon domain.Polygon
	if err := json.Unmarshal([]byte(coords.Raw), &polygon); err != nil {
		return nil, fmt.Errorf("decode coordinates: %w", err)
	}
	return polygon, nil
}
