package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/harborline/dealdesk-cli/internal/db"
	"github.com/harborline/dealdesk-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_org":   `INSERT INTO organizations (kind, id, name, payload, archived, created_at, updated_at) VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
	"get_org":      `SELECT id, payload, archived, archived_at, created_at, updated_at FROM organizations WHERE kind = $1 AND id = $2`,
	"update_org":   `UPDATE organizations SET name = $1, payload = $2, updated_at = $3 WHERE kind = $4 AND id = $5`,
	"delete_org":   `DELETE FROM organizations WHERE kind = $1 AND id = $2`,
	"set_archived": `UPDATE organizations SET archived = $1, archived_at = $2, updated_at = $3 WHERE kind = $4 AND id = $5`,
	"append_audit": `INSERT INTO audit_log (id, kind, entity_id, action, detail, actor, at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	kind        TEXT NOT NULL,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	payload     JSONB NOT NULL,
	archived    BOOLEAN NOT NULL DEFAULT FALSE,
	archived_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS market_rates (
	base   TEXT NOT NULL,
	quote  TEXT NOT NULL,
	source TEXT NOT NULL,
	rate   DOUBLE PRECISION NOT NULL,
	as_of  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (base, quote, source)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id        TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action    TEXT NOT NULL,
	detail    TEXT NOT NULL DEFAULT '',
	actor     TEXT NOT NULL DEFAULT '',
	at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations(name);
CREATE INDEX IF NOT EXISTS idx_organizations_archived ON organizations(kind, archived);
CREATE INDEX IF NOT EXISTS idx_audit_log_at ON audit_log(at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Capital partners

func (s *PostgresStore) CreateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	prepareCreate(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Archived, rec.ArchivedAt = false, nil

	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal capital partner")
	}
	return s.insertOrg(ctx, model.KindCapitalPartner, rec.ID, rec.Name, payload, rec.CreatedAt)
}

func (s *PostgresStore) GetCapitalPartner(ctx context.Context, id string) (*model.CapitalPartnerRecord, error) {
	row, err := s.getOrg(ctx, model.KindCapitalPartner, id)
	if err != nil {
		return nil, err
	}
	var rec model.CapitalPartnerRecord
	if err := json.Unmarshal(row.payload, &rec); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal capital partner %s", id)
	}
	row.apply(&rec.ID, &rec.Archived, &rec.ArchivedAt, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, nil
}

func (s *PostgresStore) ListCapitalPartners(ctx context.Context, filter ListFilter) ([]model.CapitalPartnerRecord, error) {
	rows, err := s.listOrgs(ctx, model.KindCapitalPartner, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.CapitalPartnerRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.CapitalPartnerRecord
		if err := json.Unmarshal(row.payload, &rec); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal capital partner %s", row.id)
		}
		row.apply(&rec.ID, &rec.Archived, &rec.ArchivedAt, &rec.CreatedAt, &rec.UpdatedAt)
		out = append(out, rec)
	}
	return out, nil
}

func (s *PostgresStore) UpdateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal capital partner")
	}
	return s.updateOrg(ctx, model.KindCapitalPartner, rec.ID, rec.Name, payload, rec.UpdatedAt)
}

func (s *PostgresStore) DeleteCapitalPartner(ctx context.Context, id string) error {
	return s.deleteOrg(ctx, model.KindCapitalPartner, id)
}

// Sponsors

func (s *PostgresStore) CreateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	prepareCreate(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Archived, rec.ArchivedAt = false, nil

	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sponsor")
	}
	return s.insertOrg(ctx, model.KindSponsor, rec.ID, rec.Name, payload, rec.CreatedAt)
}

func (s *PostgresStore) GetSponsor(ctx context.Context, id string) (*model.SponsorRecord, error) {
	row, err := s.getOrg(ctx, model.KindSponsor, id)
	if err != nil {
		return nil, err
	}
	var rec model.SponsorRecord
	if err := json.Unmarshal(row.payload, &rec); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal sponsor %s", id)
	}
	row.apply(&rec.ID, &rec.Archived, &rec.ArchivedAt, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, nil
}

func (s *PostgresStore) ListSponsors(ctx context.Context, filter ListFilter) ([]model.SponsorRecord, error) {
	rows, err := s.listOrgs(ctx, model.KindSponsor, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.SponsorRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.SponsorRecord
		if err := json.Unmarshal(row.payload, &rec); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal sponsor %s", row.id)
		}
		row.apply(&rec.ID, &rec.Archived, &rec.ArchivedAt, &rec.CreatedAt, &rec.UpdatedAt)
		out = append(out, rec)
	}
	return out, nil
}

func (s *PostgresStore) UpdateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sponsor")
	}
	return s.updateOrg(ctx, model.KindSponsor, rec.ID, rec.Name, payload, rec.UpdatedAt)
}

func (s *PostgresStore) DeleteSponsor(ctx context.Context, id string) error {
	return s.deleteOrg(ctx, model.KindSponsor, id)
}

// Partner teams

func (s *PostgresStore) CreatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	prepareCreate(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Archived, rec.ArchivedAt = false, nil

	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal partner team")
	}
	return s.insertOrg(ctx, model.KindPartnerTeam, rec.ID, rec.Name, payload, rec.CreatedAt)
}

func (s *PostgresStore) GetPartnerTeam(ctx context.Context, id string) (*model.PartnerTeamRecord, error) {
	row, err := s.getOrg(ctx, model.KindPartnerTeam, id)
	if err != nil {
		return nil, err
	}
	var rec model.PartnerTeamRecord
	if err := json.Unmarshal(row.payload, &rec); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal partner team %s", id)
	}
	row.apply(&rec.ID, &rec.Archived, &rec.ArchivedAt, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, nil
}

func (s *PostgresStore) ListPartnerTeams(ctx context.Context, filter ListFilter) ([]model.PartnerTeamRecord, error) {
	rows, err := s.listOrgs(ctx, model.KindPartnerTeam, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.PartnerTeamRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.PartnerTeamRecord
		if err := json.Unmarshal(row.payload, &rec); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal partner team %s", row.id)
		}
		row.apply(&rec.ID, &rec.Archived, &rec.ArchivedAt, &rec.CreatedAt, &rec.UpdatedAt)
		out = append(out, rec)
	}
	return out, nil
}

func (s *PostgresStore) UpdatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal partner team")
	}
	return s.updateOrg(ctx, model.KindPartnerTeam, rec.ID, rec.Name, payload, rec.UpdatedAt)
}

func (s *PostgresStore) DeletePartnerTeam(ctx context.Context, id string) error {
	return s.deleteOrg(ctx, model.KindPartnerTeam, id)
}

// Archival

func (s *PostgresStore) SetArchived(ctx context.Context, kind model.Kind, id string, archived bool) error {
	now := time.Now().UTC()
	var at *time.Time
	if archived {
		at = &now
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations SET archived = $1, archived_at = $2, updated_at = $3 WHERE kind = $4 AND id = $5`,
		archived, at, now, string(kind), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set archived %s %s", kind, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kindLabel(kind), id)
	}
	return nil
}

func (s *PostgresStore) PurgeArchived(ctx context.Context, kind model.Kind, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM organizations WHERE kind = $1 AND archived AND archived_at IS NOT NULL AND archived_at < $2`,
		string(kind), olderThan,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: purge archived %s", kind)
	}
	return int(tag.RowsAffected()), nil
}

// Market rates

func (s *PostgresStore) UpsertRates(ctx context.Context, rates []model.MarketRate) error {
	if len(rates) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, []any{r.Base, r.Quote, r.Source, r.Rate, r.AsOf})
	}
	_, err := db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        "market_rates",
		Columns:      []string{"base", "quote", "source", "rate", "as_of"},
		ConflictKeys: []string{"base", "quote", "source"},
	}, rows)
	return err
}

func (s *PostgresStore) ListRates(ctx context.Context) ([]model.MarketRate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT base, quote, source, rate, as_of FROM market_rates ORDER BY base, quote, source`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rates")
	}
	defer rows.Close()

	var out []model.MarketRate
	for rows.Next() {
		var r model.MarketRate
		if err := rows.Scan(&r.Base, &r.Quote, &r.Source, &r.Rate, &r.AsOf); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rate")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rates iterate")
}

// Audit trail

func (s *PostgresStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, kind, entity_id, action, detail, actor, at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, string(entry.Kind), entry.EntityID, string(entry.Action), entry.Detail, entry.Actor, entry.At,
	)
	return eris.Wrap(err, "postgres: append audit")
}

func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, entity_id, action, detail, actor, at FROM audit_log ORDER BY at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.EntityID, &e.Action, &e.Detail, &e.Actor, &e.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

// organization row helpers

type pgOrgRow struct {
	id         string
	payload    []byte
	archived   bool
	archivedAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// apply copies the authoritative envelope columns onto an unmarshalled record.
func (r *pgOrgRow) apply(id *string, archived *bool, archivedAt **time.Time, createdAt, updatedAt *time.Time) {
	*id = r.id
	*archived = r.archived
	*archivedAt = r.archivedAt
	*createdAt = r.createdAt
	*updatedAt = r.updatedAt
}

func (s *PostgresStore) insertOrg(ctx context.Context, kind model.Kind, id, name string, payload []byte, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO organizations (kind, id, name, payload, archived, created_at, updated_at) VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
		string(kind), id, name, payload, now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eris.Wrapf(ErrExists, "postgres: %s %s", kindLabel(kind), id)
		}
		return eris.Wrapf(err, "postgres: insert %s %s", kindLabel(kind), id)
	}
	return nil
}

func (s *PostgresStore) getOrg(ctx context.Context, kind model.Kind, id string) (*pgOrgRow, error) {
	var r pgOrgRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, payload, archived, archived_at, created_at, updated_at FROM organizations WHERE kind = $1 AND id = $2`,
		string(kind), id,
	).Scan(&r.id, &r.payload, &r.archived, &r.archivedAt, &r.createdAt, &r.updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "%s %s", kindLabel(kind), id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s %s", kindLabel(kind), id)
	}
	return &r, nil
}

func (s *PostgresStore) listOrgs(ctx context.Context, kind model.Kind, filter ListFilter) ([]pgOrgRow, error) {
	query := `SELECT id, payload, archived, archived_at, created_at, updated_at FROM organizations WHERE kind = $1`
	args := []any{string(kind)}
	argIdx := 2

	if !filter.IncludeArchived {
		query += ` AND NOT archived`
	}
	if filter.Query != "" {
		query += ` AND name ILIKE $` + strconv.Itoa(argIdx)
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %ss", kindLabel(kind))
	}
	defer rows.Close()

	var out []pgOrgRow
	for rows.Next() {
		var r pgOrgRow
		if err := rows.Scan(&r.id, &r.payload, &r.archived, &r.archivedAt, &r.createdAt, &r.updatedAt); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", kindLabel(kind))
		}
		out = append(out, r)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: list %ss iterate", kindLabel(kind))
}

func (s *PostgresStore) updateOrg(ctx context.Context, kind model.Kind, id, name string, payload []byte, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations SET name = $1, payload = $2, updated_at = $3 WHERE kind = $4 AND id = $5`,
		name, payload, now, string(kind), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s %s", kindLabel(kind), id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kindLabel(kind), id)
	}
	return nil
}

func (s *PostgresStore) deleteOrg(ctx context.Context, kind model.Kind, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM organizations WHERE kind = $1 AND id = $2`,
		string(kind), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete %s %s", kindLabel(kind), id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kindLabel(kind), id)
	}
	return nil
}
