package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	driver "github.com/go-sql-driver/mysql"

	"hotel_finder/internal/domain"
)

// DSN returns dsn with parseTime enabled; created_at is scanned into time.Time.
func DSN(dsn string) (string, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Repo is the lead submission log.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) RecordLead(ctx context.Context, rec domain.LeadRecord) error {
	_, err := r.db.ExecContext(ctx, insertLeadSQL,
		rec.Token,
		rec.Email,
		rec.Location,
		rec.CheckIn,
		rec.CheckOut,
		rec.HotelCount,
		string(rec.Status),
		rec.UpstreamStatus,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record lead %s: %w", rec.Token, err)
	}
	return nil
}

func (r *Repo) GetLead(ctx context.Context, token string) (domain.LeadRecord, error) {
	query, args, err := squirrel.Select(leadColumns...).
		From(leadsTable).
		Where(squirrel.Eq{"token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.LeadRecord{}, fmt.Errorf("get lead: build query: %w", err)
	}

	var rec domain.LeadRecord
	var status string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.Token,
		&rec.Email,
		&rec.Location,
		&rec.CheckIn,
		&rec.CheckOut,
		&rec.HotelCount,
		&status,
		&rec.UpstreamStatus,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LeadRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LeadRecord{}, fmt.Errorf("get lead %s: %w", token, err)
	}
	rec.Status = domain.LeadStatus(status)
	return rec, nil
}
