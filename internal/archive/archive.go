// Package archive implements bulk lifecycle operations on CRM records:
// archiving stale entries, restoring them, and purging archived records past
// retention.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborline/dealdesk-cli/internal/model"
	"github.com/harborline/dealdesk-cli/internal/store"
)

// Archiver runs bulk archive, restore, and purge passes over the store.
type Archiver struct {
	store store.Store
	actor string
}

// New builds an Archiver. actor tags the audit entries it writes.
func New(st store.Store, actor string) *Archiver {
	return &Archiver{store: st, actor: actor}
}

// BulkArchive archives every live record of one kind whose last update is
// before olderThan. Returns how many records were archived.
func (a *Archiver) BulkArchive(ctx context.Context, kind model.Kind, olderThan time.Time) (int, error) {
	stale, err := a.listStale(ctx, kind, olderThan)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, id := range stale {
		if err := a.store.SetArchived(ctx, kind, id, true); err != nil {
			return archived, eris.Wrapf(err, "archive: %s %s", kind, id)
		}
		a.audit(ctx, kind, id, model.AuditArchive, "bulk archive")
		archived++
		zap.L().Debug("archive: archived stale record",
			zap.String("kind", string(kind)),
			zap.String("id", id),
		)
	}

	zap.L().Info("archive: bulk archive complete",
		zap.String("kind", string(kind)),
		zap.Time("older_than", olderThan),
		zap.Int("archived", archived),
	)
	return archived, nil
}

// Restore brings an archived record back into the live book.
func (a *Archiver) Restore(ctx context.Context, kind model.Kind, id string) error {
	if err := a.store.SetArchived(ctx, kind, id, false); err != nil {
		return err
	}
	a.audit(ctx, kind, id, model.AuditRestore, "")
	return nil
}

// Purge permanently deletes archived records of every kind that were archived
// before olderThan. Returns per-kind deletion counts.
func (a *Archiver) Purge(ctx context.Context, olderThan time.Time) (map[model.Kind]int, error) {
	counts := make(map[model.Kind]int, len(model.Kinds))
	for _, kind := range model.Kinds {
		n, err := a.store.PurgeArchived(ctx, kind, olderThan)
		if err != nil {
			return counts, eris.Wrapf(err, "archive: purge %s", kind)
		}
		counts[kind] = n
		if n > 0 {
			a.audit(ctx, kind, "", model.AuditPurge, fmt.Sprintf("purged %d archived records", n))
		}
	}

	zap.L().Info("archive: purge complete",
		zap.Time("older_than", olderThan),
		zap.Int("capital_partners", counts[model.KindCapitalPartner]),
		zap.Int("sponsors", counts[model.KindSponsor]),
		zap.Int("partner_teams", counts[model.KindPartnerTeam]),
	)
	return counts, nil
}

// listStale collects ids of live records last updated before the cutoff.
func (a *Archiver) listStale(ctx context.Context, kind model.Kind, olderThan time.Time) ([]string, error) {
	var ids []string
	switch kind {
	case model.KindCapitalPartner:
		recs, err := a.store.ListCapitalPartners(ctx, store.ListFilter{})
		if err != nil {
			return nil, eris.Wrap(err, "archive: list capital partners")
		}
		for _, r := range recs {
			if r.UpdatedAt.Before(olderThan) {
				ids = append(ids, r.ID)
			}
		}
	case model.KindSponsor:
		recs, err := a.store.ListSponsors(ctx, store.ListFilter{})
		if err != nil {
			return nil, eris.Wrap(err, "archive: list sponsors")
		}
		for _, r := range recs {
			if r.UpdatedAt.Before(olderThan) {
				ids = append(ids, r.ID)
			}
		}
	case model.KindPartnerTeam:
		recs, err := a.store.ListPartnerTeams(ctx, store.ListFilter{})
		if err != nil {
			return nil, eris.Wrap(err, "archive: list partner teams")
		}
		for _, r := range recs {
			if r.UpdatedAt.Before(olderThan) {
				ids = append(ids, r.ID)
			}
		}
	default:
		return nil, eris.Errorf("archive: unknown kind %q", kind)
	}
	return ids, nil
}

func (a *Archiver) audit(ctx context.Context, kind model.Kind, id string, action model.AuditAction, detail string) {
	err := a.store.AppendAudit(ctx, model.AuditEntry{
		Kind:     kind,
		EntityID: id,
		Action:   action,
		Detail:   detail,
		Actor:    a.actor,
	})
	if err != nil {
		zap.L().Warn("archive: audit append failed",
			zap.String("kind", string(kind)),
			zap.String("entity_id", id),
			zap.Error(err),
		)
	}
}
