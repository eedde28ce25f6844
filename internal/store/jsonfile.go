package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/harborline/dealdesk-cli/internal/model"
)

const (
	partnersFile = "capital_partners.json"
	sponsorsFile = "sponsors.json"
	teamsFile    = "partner_teams.json"
	ratesFile    = "market_rates.json"
	auditFile    = "audit_log.json"

	backupDir = "backups"
)

// JSONStore keeps each collection in a pretty-printed JSON file under a data
// directory. It is the default driver: the files are the CRM's system of
// record and stay reviewable in a plain editor or a git diff.
//
// Writes go through a temp file and rename, with a timestamped backup of the
// previous version kept under backups/.
type JSONStore struct {
	mu      sync.RWMutex
	dir     string
	backups int

	partners map[string]model.CapitalPartnerRecord
	sponsors map[string]model.SponsorRecord
	teams    map[string]model.PartnerTeamRecord
	rates    map[string]model.MarketRate
	audit    []model.AuditEntry
}

// NewJSON opens (and if needed creates) a JSON file store rooted at dir.
// backups is the number of previous versions kept per file; <= 0 disables
// backups.
func NewJSON(dir string, backups int) (*JSONStore, error) {
	if dir == "" {
		return nil, eris.New("json store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "json store: create data dir %s", dir)
	}

	s := &JSONStore{
		dir:      dir,
		backups:  backups,
		partners: make(map[string]model.CapitalPartnerRecord),
		sponsors: make(map[string]model.SponsorRecord),
		teams:    make(map[string]model.PartnerTeamRecord),
		rates:    make(map[string]model.MarketRate),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	var partners []model.CapitalPartnerRecord
	if err := s.readFile(partnersFile, &partners); err != nil {
		return err
	}
	for _, r := range partners {
		s.partners[r.ID] = r
	}

	var sponsors []model.SponsorRecord
	if err := s.readFile(sponsorsFile, &sponsors); err != nil {
		return err
	}
	for _, r := range sponsors {
		s.sponsors[r.ID] = r
	}

	var teams []model.PartnerTeamRecord
	if err := s.readFile(teamsFile, &teams); err != nil {
		return err
	}
	for _, r := range teams {
		s.teams[r.ID] = r
	}

	var rates []model.MarketRate
	if err := s.readFile(ratesFile, &rates); err != nil {
		return err
	}
	for _, r := range rates {
		s.rates[r.Key()] = r
	}

	return s.readFile(auditFile, &s.audit)
}

func (s *JSONStore) readFile(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "json store: read %s", name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "json store: parse %s", name)
	}
	return nil
}

// writeFile persists one collection atomically: back up the current file,
// write a temp file, rename it into place.
func (s *JSONStore) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "json store: encode %s", name)
	}
	data = append(data, '\n')

	path := filepath.Join(s.dir, name)
	if err := s.backupFile(name, path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "json store: temp file for %s", name)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "json store: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "json store: close temp for %s", name)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "json store: replace %s", name)
	}
	return nil
}

func (s *JSONStore) backupFile(name, path string) error {
	if s.backups <= 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "json store: back up %s", name)
	}

	dir := filepath.Join(s.dir, backupDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "json store: create backup dir")
	}

	base := strings.TrimSuffix(name, ".json")
	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	dst := filepath.Join(dir, base+"-"+stamp+".json")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return eris.Wrapf(err, "json store: write backup for %s", name)
	}

	return s.pruneBackups(dir, base)
}

// pruneBackups keeps the newest s.backups copies per collection. Backup names
// embed an RFC-like timestamp, so lexicographic order is chronological.
func (s *JSONStore) pruneBackups(dir, base string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrap(err, "json store: list backups")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), base+"-") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.backups {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-s.backups] {
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			return eris.Wrapf(err, "json store: prune backup %s", n)
		}
	}
	return nil
}

// Capital partners

func (s *JSONStore) CreateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, ok := s.partners[rec.ID]; ok {
		return eris.Wrapf(ErrExists, "json store: capital partner %s", rec.ID)
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Archived = false
	rec.ArchivedAt = nil

	s.partners[rec.ID] = *rec
	return s.persistPartners()
}

func (s *JSONStore) GetCapitalPartner(ctx context.Context, id string) (*model.CapitalPartnerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.partners[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "capital partner %s", id)
	}
	return &rec, nil
}

func (s *JSONStore) ListCapitalPartners(ctx context.Context, filter ListFilter) ([]model.CapitalPartnerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CapitalPartnerRecord, 0, len(s.partners))
	for _, r := range s.partners {
		if r.Archived && !filter.IncludeArchived {
			continue
		}
		if !matchesQuery(r.Name, filter.Query) {
			continue
		}
		out = append(out, r)
	}
	sortByCreation(out, func(r model.CapitalPartnerRecord) (time.Time, string) { return r.CreatedAt, r.ID })
	lo, hi := pageBounds(len(out), filter.Offset, filter.Limit)
	return out[lo:hi], nil
}

func (s *JSONStore) UpdateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.partners[rec.ID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "capital partner %s", rec.ID)
	}
	rec.CreatedAt = cur.CreatedAt
	rec.Archived = cur.Archived
	rec.ArchivedAt = cur.ArchivedAt
	rec.UpdatedAt = time.Now().UTC()

	s.partners[rec.ID] = *rec
	return s.persistPartners()
}

func (s *JSONStore) DeleteCapitalPartner(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.partners[id]; !ok {
		return eris.Wrapf(ErrNotFound, "capital partner %s", id)
	}
	delete(s.partners, id)
	return s.persistPartners()
}

// Sponsors

func (s *JSONStore) CreateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, ok := s.sponsors[rec.ID]; ok {
		return eris.Wrapf(ErrExists, "json store: sponsor %s", rec.ID)
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Archived = false
	rec.ArchivedAt = nil

	s.sponsors[rec.ID] = *rec
	return s.persistSponsors()
}

func (s *JSONStore) GetSponsor(ctx context.Context, id string) (*model.SponsorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sponsors[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "sponsor %s", id)
	}
	return &rec, nil
}

func (s *JSONStore) ListSponsors(ctx context.Context, filter ListFilter) ([]model.SponsorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SponsorRecord, 0, len(s.sponsors))
	for _, r := range s.sponsors {
		if r.Archived && !filter.IncludeArchived {
			continue
		}
		if !matchesQuery(r.Name, filter.Query) {
			continue
		}
		out = append(out, r)
	}
	sortByCreation(out, func(r model.SponsorRecord) (time.Time, string) { return r.CreatedAt, r.ID })
	lo, hi := pageBounds(len(out), filter.Offset, filter.Limit)
	return out[lo:hi], nil
}

func (s *JSONStore) UpdateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sponsors[rec.ID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "sponsor %s", rec.ID)
	}
	rec.CreatedAt = cur.CreatedAt
	rec.Archived = cur.Archived
	rec.ArchivedAt = cur.ArchivedAt
	rec.UpdatedAt = time.Now().UTC()

	s.sponsors[rec.ID] = *rec
	return s.persistSponsors()
}

func (s *JSONStore) DeleteSponsor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sponsors[id]; !ok {
		return eris.Wrapf(ErrNotFound, "sponsor %s", id)
	}
	delete(s.sponsors, id)
	return s.persistSponsors()
}

// Partner teams

func (s *JSONStore) CreatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, ok := s.teams[rec.ID]; ok {
		return eris.Wrapf(ErrExists, "json store: partner team %s", rec.ID)
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Archived = false
	rec.ArchivedAt = nil

	s.teams[rec.ID] = *rec
	return s.persistTeams()
}

func (s *JSONStore) GetPartnerTeam(ctx context.Context, id string) (*model.PartnerTeamRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.teams[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "partner team %s", id)
	}
	return &rec, nil
}

func (s *JSONStore) ListPartnerTeams(ctx context.Context, filter ListFilter) ([]model.PartnerTeamRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PartnerTeamRecord, 0, len(s.teams))
	for _, r := range s.teams {
		if r.Archived && !filter.IncludeArchived {
			continue
		}
		if !matchesQuery(r.Name, filter.Query) {
			continue
		}
		out = append(out, r)
	}
	sortByCreation(out, func(r model.PartnerTeamRecord) (time.Time, string) { return r.CreatedAt, r.ID })
	lo, hi := pageBounds(len(out), filter.Offset, filter.Limit)
	return out[lo:hi], nil
}

func (s *JSONStore) UpdatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.teams[rec.ID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "partner team %s", rec.ID)
	}
	rec.CreatedAt = cur.CreatedAt
	rec.Archived = cur.Archived
	rec.ArchivedAt = cur.ArchivedAt
	rec.UpdatedAt = time.Now().UTC()

	s.teams[rec.ID] = *rec
	return s.persistTeams()
}

func (s *JSONStore) DeletePartnerTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return eris.Wrapf(ErrNotFound, "partner team %s", id)
	}
	delete(s.teams, id)
	return s.persistTeams()
}

// Archival

func (s *JSONStore) SetArchived(ctx context.Context, kind model.Kind, id string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var at *time.Time
	if archived {
		at = &now
	}

	switch kind {
	case model.KindCapitalPartner:
		rec, ok := s.partners[id]
		if !ok {
			return eris.Wrapf(ErrNotFound, "capital partner %s", id)
		}
		rec.Archived, rec.ArchivedAt, rec.UpdatedAt = archived, at, now
		s.partners[id] = rec
		return s.persistPartners()
	case model.KindSponsor:
		rec, ok := s.sponsors[id]
		if !ok {
			return eris.Wrapf(ErrNotFound, "sponsor %s", id)
		}
		rec.Archived, rec.ArchivedAt, rec.UpdatedAt = archived, at, now
		s.sponsors[id] = rec
		return s.persistSponsors()
	case model.KindPartnerTeam:
		rec, ok := s.teams[id]
		if !ok {
			return eris.Wrapf(ErrNotFound, "partner team %s", id)
		}
		rec.Archived, rec.ArchivedAt, rec.UpdatedAt = archived, at, now
		s.teams[id] = rec
		return s.persistTeams()
	default:
		return eris.Errorf("json store: unknown kind %q", kind)
	}
}

func (s *JSONStore) PurgeArchived(ctx context.Context, kind model.Kind, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	switch kind {
	case model.KindCapitalPartner:
		for id, r := range s.partners {
			if r.Archived && r.ArchivedAt != nil && r.ArchivedAt.Before(olderThan) {
				delete(s.partners, id)
				purged++
			}
		}
		if purged == 0 {
			return 0, nil
		}
		return purged, s.persistPartners()
	case model.KindSponsor:
		for id, r := range s.sponsors {
			if r.Archived && r.ArchivedAt != nil && r.ArchivedAt.Before(olderThan) {
				delete(s.sponsors, id)
				purged++
			}
		}
		if purged == 0 {
			return 0, nil
		}
		return purged, s.persistSponsors()
	case model.KindPartnerTeam:
		for id, r := range s.teams {
			if r.Archived && r.ArchivedAt != nil && r.ArchivedAt.Before(olderThan) {
				delete(s.teams, id)
				purged++
			}
		}
		if purged == 0 {
			return 0, nil
		}
		return purged, s.persistTeams()
	default:
		return 0, eris.Errorf("json store: unknown kind %q", kind)
	}
}

// Market rates

func (s *JSONStore) UpsertRates(ctx context.Context, rates []model.MarketRate) error {
	if len(rates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rates {
		s.rates[r.Key()] = r
	}
	return s.persistRates()
}

func (s *JSONStore) ListRates(ctx context.Context) ([]model.MarketRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rateList(), nil
}

// Audit trail

func (s *JSONStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
	return s.writeFile(auditFile, s.audit)
}

func (s *JSONStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first.
	out := make([]model.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		out = append(out, s.audit[i])
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Lifecycle

// Migrate writes every collection file so a fresh data directory carries the
// full layout even before the first record.
func (s *JSONStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistPartners(); err != nil {
		return err
	}
	if err := s.persistSponsors(); err != nil {
		return err
	}
	if err := s.persistTeams(); err != nil {
		return err
	}
	if err := s.persistRates(); err != nil {
		return err
	}
	if s.audit == nil {
		s.audit = []model.AuditEntry{}
	}
	return s.writeFile(auditFile, s.audit)
}

func (s *JSONStore) Close() error {
	return nil
}

// persist helpers, called with the write lock held

func (s *JSONStore) persistPartners() error {
	out := make([]model.CapitalPartnerRecord, 0, len(s.partners))
	for _, r := range s.partners {
		out = append(out, r)
	}
	sortByCreation(out, func(r model.CapitalPartnerRecord) (time.Time, string) { return r.CreatedAt, r.ID })
	return s.writeFile(partnersFile, out)
}

func (s *JSONStore) persistSponsors() error {
	out := make([]model.SponsorRecord, 0, len(s.sponsors))
	for _, r := range s.sponsors {
		out = append(out, r)
	}
	sortByCreation(out, func(r model.SponsorRecord) (time.Time, string) { return r.CreatedAt, r.ID })
	return s.writeFile(sponsorsFile, out)
}

func (s *JSONStore) persistTeams() error {
	out := make([]model.PartnerTeamRecord, 0, len(s.teams))
	for _, r := range s.teams {
		out = append(out, r)
	}
	sortByCreation(out, func(r model.PartnerTeamRecord) (time.Time, string) { return r.CreatedAt, r.ID })
	return s.writeFile(teamsFile, out)
}

func (s *JSONStore) persistRates() error {
	return s.writeFile(ratesFile, s.rateList())
}

func (s *JSONStore) rateList() []model.MarketRate {
	out := make([]model.MarketRate, 0, len(s.rates))
	for _, r := range s.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// sortByCreation orders records by creation time, then id for ties, which
// keeps file contents and list output stable across runs.
func sortByCreation[T any](recs []T, key func(T) (time.Time, string)) {
	sort.Slice(recs, func(i, j int) bool {
		ti, idi := key(recs[i])
		tj, idj := key(recs[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
