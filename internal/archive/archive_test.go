package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/dealdesk-cli/internal/model"
	"github.com/harborline/dealdesk-cli/internal/store"
)

func newTestArchiver(t *testing.T) (*Archiver, store.Store) {
	t.Helper()
	st, err := store.NewJSON(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return New(st, "test"), st
}

func createPartner(t *testing.T, st store.Store, name string) *model.CapitalPartnerRecord {
	t.Helper()
	rec := &model.CapitalPartnerRecord{Name: name}
	require.NoError(t, st.CreateCapitalPartner(context.Background(), rec))
	return rec
}

func TestBulkArchive(t *testing.T) {
	arch, st := newTestArchiver(t)
	ctx := context.Background()

	createPartner(t, st, "Meridian Capital")
	createPartner(t, st, "Cascade Partners")

	// A cutoff before every update leaves the book alone.
	n, err := arch.BulkArchive(ctx, model.KindCapitalPartner, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	// A future cutoff sweeps everything live.
	n, err = arch.BulkArchive(ctx, model.KindCapitalPartner, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	live, err := st.ListCapitalPartners(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, live)

	all, err := st.ListCapitalPartners(ctx, store.ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Already-archived records are not swept again.
	n, err = arch.BulkArchive(ctx, model.KindCapitalPartner, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkArchive_WritesAuditEntries(t *testing.T) {
	arch, st := newTestArchiver(t)
	ctx := context.Background()

	rec := createPartner(t, st, "Meridian Capital")
	_, err := arch.BulkArchive(ctx, model.KindCapitalPartner, time.Now().Add(time.Hour))
	require.NoError(t, err)

	entries, err := st.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditArchive, entries[0].Action)
	assert.Equal(t, rec.ID, entries[0].EntityID)
	assert.Equal(t, "bulk archive", entries[0].Detail)
	assert.Equal(t, "test", entries[0].Actor)
}

func TestBulkArchive_UnknownKind(t *testing.T) {
	arch, _ := newTestArchiver(t)
	_, err := arch.BulkArchive(context.Background(), model.Kind("committee"), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestRestore(t *testing.T) {
	arch, st := newTestArchiver(t)
	ctx := context.Background()

	rec := createPartner(t, st, "Meridian Capital")
	require.NoError(t, st.SetArchived(ctx, model.KindCapitalPartner, rec.ID, true))

	require.NoError(t, arch.Restore(ctx, model.KindCapitalPartner, rec.ID))

	live, err := st.ListCapitalPartners(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.False(t, live[0].Archived)

	entries, err := st.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditRestore, entries[0].Action)
}

func TestPurge(t *testing.T) {
	arch, st := newTestArchiver(t)
	ctx := context.Background()

	old := createPartner(t, st, "Meridian Capital")
	keep := createPartner(t, st, "Cascade Partners")
	sponsor := &model.SponsorRecord{Name: "Hanoi Grid Partners"}
	require.NoError(t, st.CreateSponsor(ctx, sponsor))

	require.NoError(t, st.SetArchived(ctx, model.KindCapitalPartner, old.ID, true))
	require.NoError(t, st.SetArchived(ctx, model.KindSponsor, sponsor.ID, true))

	counts, err := arch.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[model.Kind]int{
		model.KindCapitalPartner: 1,
		model.KindSponsor:        1,
		model.KindPartnerTeam:    0,
	}, counts)

	// The live record survives; the archived ones are gone for good.
	all, err := st.ListCapitalPartners(ctx, store.ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)

	entries, err := st.ListAudit(ctx, 0)
	require.NoError(t, err)
	var purges int
	for _, e := range entries {
		if e.Action == model.AuditPurge {
			purges++
			assert.Contains(t, e.Detail, "purged 1 archived records")
		}
	}
	assert.Equal(t, 2, purges)
}

func TestPurge_NothingArchived(t *testing.T) {
	arch, st := newTestArchiver(t)
	ctx := context.Background()

	createPartner(t, st, "Meridian Capital")
	counts, err := arch.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	for _, kind := range model.Kinds {
		assert.Zero(t, counts[kind])
	}

	// No purge entries when nothing went away.
	entries, err := st.ListAudit(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
