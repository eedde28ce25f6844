// Package store persists the deal desk CRM: capital partners, sponsors,
// partner teams, market rates, and the audit trail. Three drivers implement
// the same interface: json (flat files, the default), sqlite, and postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/harborline/dealdesk-cli/internal/model"
)

// ErrNotFound is wrapped by every driver when a lookup misses. Callers match
// it with eris.Is.
var ErrNotFound = eris.New("store: not found")

// ErrExists is wrapped when a create collides with an existing id.
var ErrExists = eris.New("store: already exists")

// ListFilter narrows List* calls. A zero value lists every live record.
type ListFilter struct {
	// Query is matched case-insensitively against record names. Empty
	// matches everything.
	Query string
	// IncludeArchived keeps archived records in the result. Off by default.
	IncludeArchived bool
	// Limit caps the result size; <= 0 means no cap.
	Limit int
	// Offset skips that many records from the start of the result.
	Offset int
}

// Store is the persistence interface the CLI and server run against.
// Records come back in creation order so profile builds are stable.
type Store interface {
	// Capital partners
	CreateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error
	GetCapitalPartner(ctx context.Context, id string) (*model.CapitalPartnerRecord, error)
	ListCapitalPartners(ctx context.Context, filter ListFilter) ([]model.CapitalPartnerRecord, error)
	UpdateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error
	DeleteCapitalPartner(ctx context.Context, id string) error

	// Sponsors
	CreateSponsor(ctx context.Context, rec *model.SponsorRecord) error
	GetSponsor(ctx context.Context, id string) (*model.SponsorRecord, error)
	ListSponsors(ctx context.Context, filter ListFilter) ([]model.SponsorRecord, error)
	UpdateSponsor(ctx context.Context, rec *model.SponsorRecord) error
	DeleteSponsor(ctx context.Context, id string) error

	// Partner teams
	CreatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error
	GetPartnerTeam(ctx context.Context, id string) (*model.PartnerTeamRecord, error)
	ListPartnerTeams(ctx context.Context, filter ListFilter) ([]model.PartnerTeamRecord, error)
	UpdatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error
	DeletePartnerTeam(ctx context.Context, id string) error

	// Archival
	SetArchived(ctx context.Context, kind model.Kind, id string, archived bool) error
	PurgeArchived(ctx context.Context, kind model.Kind, olderThan time.Time) (int, error)

	// Market rates
	UpsertRates(ctx context.Context, rates []model.MarketRate) error
	ListRates(ctx context.Context) ([]model.MarketRate, error)

	// Audit trail
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)

	// Migrate creates or upgrades the underlying schema. Safe to run on
	// every start.
	Migrate(ctx context.Context) error
	Close() error
}
