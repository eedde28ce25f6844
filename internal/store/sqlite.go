package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	sqlite "modernc.org/sqlite"

	"github.com/harborline/dealdesk-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	kind        TEXT NOT NULL,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	archived    INTEGER NOT NULL DEFAULT 0,
	archived_at DATETIME,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS market_rates (
	base   TEXT NOT NULL,
	quote  TEXT NOT NULL,
	source TEXT NOT NULL,
	rate   REAL NOT NULL,
	as_of  DATETIME NOT NULL,
	PRIMARY KEY (base, quote, source)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id        TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action    TEXT NOT NULL,
	detail    TEXT NOT NULL DEFAULT '',
	actor     TEXT NOT NULL DEFAULT '',
	at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations(name);
CREATE INDEX IF NOT EXISTS idx_organizations_archived ON organizations(kind, archived);
CREATE INDEX IF NOT EXISTS idx_audit_log_at ON audit_log(at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Capital partners

func (s *SQLiteStore) CreateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	prepareCreate(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Archived, rec.ArchivedAt = false, nil

	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal capital partner")
	}
	return s.insertOrg(ctx, model.KindCapitalPartner, rec.ID, rec.Name, payload, rec.CreatedAt)
}

func (s *SQLiteStore) GetCapitalPartner(ctx context.Context, id string) (*model.CapitalPartnerRecord, error) {
	row, err := s.getOrg(ctx, model.KindCapitalPartner, id)
	if err != nil {
		return nil, err
	}
	var rec model.CapitalPartnerRecord
	if err := json.Unmarshal(row.payload, &rec); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal capital partner %s", id)
	}
	rec.ID, rec.Archived, rec.ArchivedAt = row.id, row.archived, nullTimePtr(row.archivedAt)
	rec.CreatedAt, rec.UpdatedAt = row.createdAt, row.updatedAt
	return &rec, nil
}

func (s *SQLiteStore) ListCapitalPartners(ctx context.Context, filter ListFilter) ([]model.CapitalPartnerRecord, error) {
	rows, err := s.listOrgs(ctx, model.KindCapitalPartner, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.CapitalPartnerRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.CapitalPartnerRecord
		if err := json.Unmarshal(row.payload, &rec); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal capital partner %s", row.id)
		}
		rec.ID, rec.Archived, rec.ArchivedAt = row.id, row.archived, nullTimePtr(row.archivedAt)
		rec.CreatedAt, rec.UpdatedAt = row.createdAt, row.updatedAt
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal capital partner")
	}
	return s.updateOrg(ctx, model.KindCapitalPartner, rec.ID, rec.Name, payload, rec.UpdatedAt)
}

func (s *SQLiteStore) DeleteCapitalPartner(ctx context.Context, id string) error {
	return s.deleteOrg(ctx, model.KindCapitalPartner, id)
}

// Sponsors

func (s *SQLiteStore) CreateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	prepareCreate(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Archived, rec.ArchivedAt = false, nil

	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sponsor")
	}
	return s.insertOrg(ctx, model.KindSponsor, rec.ID, rec.Name, payload, rec.CreatedAt)
}

func (s *SQLiteStore) GetSponsor(ctx context.Context, id string) (*model.SponsorRecord, error) {
	row, err := s.getOrg(ctx, model.KindSponsor, id)
	if err != nil {
		return nil, err
	}
	var rec model.SponsorRecord
	if err := json.Unmarshal(row.payload, &rec); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal sponsor %s", id)
	}
	rec.ID, rec.Archived, rec.ArchivedAt = row.id, row.archived, nullTimePtr(row.archivedAt)
	rec.CreatedAt, rec.UpdatedAt = row.createdAt, row.updatedAt
	return &rec, nil
}

func (s *SQLiteStore) ListSponsors(ctx context.Context, filter ListFilter) ([]model.SponsorRecord, error) {
	rows, err := s.listOrgs(ctx, model.KindSponsor, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.SponsorRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.SponsorRecord
		if err := json.Unmarshal(row.payload, &rec); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal sponsor %s", row.id)
		}
		rec.ID, rec.Archived, rec.ArchivedAt = row.id, row.archived, nullTimePtr(row.archivedAt)
		rec.CreatedAt, rec.UpdatedAt = row.createdAt, row.updatedAt
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sponsor")
	}
	return s.updateOrg(ctx, model.KindSponsor, rec.ID, rec.Name, payload, rec.UpdatedAt)
}

func (s *SQLiteStore) DeleteSponsor(ctx context.Context, id string) error {
	return s.deleteOrg(ctx, model.KindSponsor, id)
}

// Partner teams

func (s *SQLiteStore) CreatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	prepareCreate(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Archived, rec.ArchivedAt = false, nil

	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal partner team")
	}
	return s.insertOrg(ctx, model.KindPartnerTeam, rec.ID, rec.Name, payload, rec.CreatedAt)
}

func (s *SQLiteStore) GetPartnerTeam(ctx context.Context, id string) (*model.PartnerTeamRecord, error) {
	row, err := s.getOrg(ctx, model.KindPartnerTeam, id)
	if err != nil {
		return nil, err
	}
	var rec model.PartnerTeamRecord
	if err := json.Unmarshal(row.payload, &rec); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal partner team %s", id)
	}
	rec.ID, rec.Archived, rec.ArchivedAt = row.id, row.archived, nullTimePtr(row.archivedAt)
	rec.CreatedAt, rec.UpdatedAt = row.createdAt, row.updatedAt
	return &rec, nil
}

func (s *SQLiteStore) ListPartnerTeams(ctx context.Context, filter ListFilter) ([]model.PartnerTeamRecord, error) {
	rows, err := s.listOrgs(ctx, model.KindPartnerTeam, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.PartnerTeamRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.PartnerTeamRecord
		if err := json.Unmarshal(row.payload, &rec); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal partner team %s", row.id)
		}
		rec.ID, rec.Archived, rec.ArchivedAt = row.id, row.archived, nullTimePtr(row.archivedAt)
		rec.CreatedAt, rec.UpdatedAt = row.createdAt, row.updatedAt
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLiteStore) UpdatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal partner team")
	}
	return s.updateOrg(ctx, model.KindPartnerTeam, rec.ID, rec.Name, payload, rec.UpdatedAt)
}

func (s *SQLiteStore) DeletePartnerTeam(ctx context.Context, id string) error {
	return s.deleteOrg(ctx, model.KindPartnerTeam, id)
}

// Archival

func (s *SQLiteStore) SetArchived(ctx context.Context, kind model.Kind, id string, archived bool) error {
	now := time.Now().UTC()
	var at any
	if archived {
		at = now
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET archived = ?, archived_at = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		archived, at, now, string(kind), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set archived %s %s", kind, id)
	}
	return checkRowsAffected(res, kindLabel(kind), id)
}

func (s *SQLiteStore) PurgeArchived(ctx context.Context, kind model.Kind, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM organizations WHERE kind = ? AND archived = 1 AND archived_at IS NOT NULL AND archived_at < ?`,
		string(kind), olderThan,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: purge archived %s", kind)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// Market rates

func (s *SQLiteStore) UpsertRates(ctx context.Context, rates []model.MarketRate) error {
	for _, r := range rates {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO market_rates (base, quote, source, rate, as_of) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (base, quote, source) DO UPDATE SET rate = excluded.rate, as_of = excluded.as_of`,
			r.Base, r.Quote, r.Source, r.Rate, r.AsOf,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert rate %s", r.Key())
		}
	}
	return nil
}

func (s *SQLiteStore) ListRates(ctx context.Context) ([]model.MarketRate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT base, quote, source, rate, as_of FROM market_rates ORDER BY base, quote, source`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rates")
	}
	defer rows.Close()

	var out []model.MarketRate
	for rows.Next() {
		var r model.MarketRate
		if err := rows.Scan(&r.Base, &r.Quote, &r.Source, &r.Rate, &r.AsOf); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rate")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rates iterate")
}

// Audit trail

func (s *SQLiteStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, kind, entity_id, action, detail, actor, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Kind), entry.EntityID, string(entry.Action), entry.Detail, entry.Actor, entry.At,
	)
	return eris.Wrap(err, "sqlite: append audit")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, entity_id, action, detail, actor, at FROM audit_log ORDER BY at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.EntityID, &e.Action, &e.Detail, &e.Actor, &e.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// organization row helpers

type orgRow struct {
	id         string
	payload    []byte
	archived   bool
	archivedAt sql.NullTime
	createdAt  time.Time
	updatedAt  time.Time
}

func (s *SQLiteStore) insertOrg(ctx context.Context, kind model.Kind, id, name string, payload []byte, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (kind, id, name, payload, archived, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		string(kind), id, name, string(payload), now, now,
	)
	if err != nil {
		// The only constraint on organizations is the (kind, id) primary key,
		// so a constraint-class error here means the id is taken.
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code()&0xff == 19 {
			return eris.Wrapf(ErrExists, "sqlite: %s %s", kindLabel(kind), id)
		}
		return eris.Wrapf(err, "sqlite: insert %s %s", kindLabel(kind), id)
	}
	return nil
}

func (s *SQLiteStore) getOrg(ctx context.Context, kind model.Kind, id string) (*orgRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payload, archived, archived_at, created_at, updated_at FROM organizations WHERE kind = ? AND id = ?`,
		string(kind), id,
	)

	var r orgRow
	var payload string
	err := row.Scan(&r.id, &payload, &r.archived, &r.archivedAt, &r.createdAt, &r.updatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "%s %s", kindLabel(kind), id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s %s", kindLabel(kind), id)
	}
	r.payload = []byte(payload)
	return &r, nil
}

func (s *SQLiteStore) listOrgs(ctx context.Context, kind model.Kind, filter ListFilter) ([]orgRow, error) {
	query := `SELECT id, payload, archived, archived_at, created_at, updated_at FROM organizations WHERE kind = ?`
	args := []any{string(kind)}

	if !filter.IncludeArchived {
		query += ` AND archived = 0`
	}
	if filter.Query != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %ss", kindLabel(kind))
	}
	defer rows.Close()

	var out []orgRow
	for rows.Next() {
		var r orgRow
		var payload string
		if err := rows.Scan(&r.id, &payload, &r.archived, &r.archivedAt, &r.createdAt, &r.updatedAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", kindLabel(kind))
		}
		r.payload = []byte(payload)
		out = append(out, r)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: list %ss iterate", kindLabel(kind))
}

func (s *SQLiteStore) updateOrg(ctx context.Context, kind model.Kind, id, name string, payload []byte, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET name = ?, payload = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		name, string(payload), now, string(kind), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s %s", kindLabel(kind), id)
	}
	return checkRowsAffected(res, kindLabel(kind), id)
}

func (s *SQLiteStore) deleteOrg(ctx context.Context, kind model.Kind, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM organizations WHERE kind = ? AND id = ?`,
		string(kind), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete %s %s", kindLabel(kind), id)
	}
	return checkRowsAffected(res, kindLabel(kind), id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

// prepareCreate fills the id and create/update stamps on a new record.
func prepareCreate(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	now := time.Now().UTC()
	*createdAt = now
	*updatedAt = now
}

func kindLabel(kind model.Kind) string {
	switch kind {
	case model.KindCapitalPartner:
		return "capital partner"
	case model.KindSponsor:
		return "sponsor"
	case model.KindPartnerTeam:
		return "partner team"
	default:
		return string(kind)
	}
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
