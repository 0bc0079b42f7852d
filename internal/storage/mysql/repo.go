package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/samecityapp/hotelfinder/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Upsert(ctx context.Context, v domain.VenueRecord) error {
	steps := v.StepLog
	if steps == nil {
		steps = []string{}
	}
	logJSON, _ := json.Marshal(steps)
	_, err := r.db.ExecContext(ctx, upsertVenueSQL,
		v.Name,
		v.LocationQuery,
		valStr(v.Address),
		valF64(v.Rating),
		valInt(v.Reviews),
		valStr(v.Website),
		valStr(v.Instagram),
		v.Status,
		string(logJSON),
	)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, name, location, stage, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, name, location, stage, reason)
	return err
}

func (r *Repo) FindByKey(ctx context.Context, name, location string) (domain.VenueRecord, error) {
	row := r.db.QueryRowContext(ctx, findVenueSQL, name, location)
	v, err := scanVenue(row.Scan)
	if err == sql.ErrNoRows {
		return domain.VenueRecord{}, domain.ErrNotFound
	}
	return v, err
}

func (r *Repo) ListByLocation(ctx context.Context, location string) ([]domain.VenueRecord, error) {
	rows, err := r.db.QueryContext(ctx, listVenuesSQL, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VenueRecord
	for rows.Next() {
		v, err := scanVenue(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVenue(scan func(...any) error) (domain.VenueRecord, error) {
	var v domain.VenueRecord
	var (
		address, website, instagram sql.NullString
		rating                      sql.NullFloat64
		reviews                     sql.NullInt64
		stepsRaw                    []byte
	)
	if err := scan(
		&v.ID,
		&v.Name,
		&v.LocationQuery,
		&address,
		&rating,
		&reviews,
		&website,
		&instagram,
		&v.Status,
		&stepsRaw,
	); err != nil {
		return domain.VenueRecord{}, err
	}

	if address.Valid {
		s := address.String
		v.Address = &s
	}
	if rating.Valid {
		f := rating.Float64
		v.Rating = &f
	}
	if reviews.Valid {
		n := int(reviews.Int64)
		v.Reviews = &n
	}
	if website.Valid && website.String != "" {
		s := website.String
		v.Website = &s
	}
	if instagram.Valid && instagram.String != "" {
		s := instagram.String
		v.Instagram = &s
	}
	_ = json.Unmarshal(stepsRaw, &v.StepLog)
	return v, nil
}
