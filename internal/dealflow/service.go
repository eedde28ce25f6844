// Package dealflow is the application layer: it bundles the store with the
// profile normalizer and pairing engine, and records every mutation on the
// audit trail.
package dealflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborline/dealdesk-cli/internal/config"
	"github.com/harborline/dealdesk-cli/internal/match"
	"github.com/harborline/dealdesk-cli/internal/model"
	"github.com/harborline/dealdesk-cli/internal/profile"
	"github.com/harborline/dealdesk-cli/internal/store"
)

// Service exposes the CRM operations shared by the CLI commands and the API
// server.
type Service struct {
	store store.Store
	norm  profile.Normalizer
	actor string
}

// New builds a Service. actor tags audit entries ("cli" or "api").
func New(st store.Store, keys profile.KeySet, actor string) *Service {
	return &Service{
		store: st,
		norm:  profile.NewNormalizer(keys),
		actor: actor,
	}
}

// ResolveKeys picks the preference key set: an explicit schema file wins over
// inline config keys, which win over the built-in defaults.
func ResolveKeys(cfg config.MatchConfig) (profile.KeySet, error) {
	if cfg.SchemaPath != "" {
		return profile.LoadKeySchema(cfg.SchemaPath)
	}
	if len(cfg.PreferenceKeys) > 0 {
		return profile.NewKeySet(cfg.PreferenceKeys), nil
	}
	return profile.NewKeySet(profile.DefaultKeys()), nil
}

// Keys returns the active preference key set.
func (s *Service) Keys() profile.KeySet {
	return s.norm.Keys()
}

// ProfileSet is every normalized profile in the book, grouped by category.
type ProfileSet struct {
	PreferenceKeys  []string          `json:"preference_keys"`
	CapitalPartners []profile.Profile `json:"capital_partners"`
	Sponsors        []profile.Profile `json:"sponsors"`
	PartnerTeams    []profile.Profile `json:"partner_teams"`
}

// BuildProfiles normalizes the live capital partner and sponsor records into
// the export payload. Normalization diagnostics are logged, not returned: a
// malformed field degrades to "any", it never fails the build.
func (s *Service) BuildProfiles(ctx context.Context) (profile.BuildResult, error) {
	partners, err := s.store.ListCapitalPartners(ctx, store.ListFilter{})
	if err != nil {
		return profile.BuildResult{}, eris.Wrap(err, "dealflow: list capital partners")
	}
	sponsors, err := s.store.ListSponsors(ctx, store.ListFilter{})
	if err != nil {
		return profile.BuildResult{}, eris.Wrap(err, "dealflow: list sponsors")
	}

	result, diags := s.norm.Build(partners, sponsors)
	s.logDiagnostics(diags)
	zap.L().Info("dealflow: built profiles",
		zap.Int("capital_partners", len(result.CapitalPartners)),
		zap.Int("sponsors", len(result.Sponsors)),
		zap.Int("diagnostics", len(diags)),
	)
	return result, nil
}

// Profiles normalizes all three categories, resolving partner team
// back-references against the capital partner profiles.
func (s *Service) Profiles(ctx context.Context) (ProfileSet, error) {
	partners, err := s.store.ListCapitalPartners(ctx, store.ListFilter{})
	if err != nil {
		return ProfileSet{}, eris.Wrap(err, "dealflow: list capital partners")
	}
	sponsors, err := s.store.ListSponsors(ctx, store.ListFilter{})
	if err != nil {
		return ProfileSet{}, eris.Wrap(err, "dealflow: list sponsors")
	}
	teams, err := s.store.ListPartnerTeams(ctx, store.ListFilter{})
	if err != nil {
		return ProfileSet{}, eris.Wrap(err, "dealflow: list partner teams")
	}

	set := s.norm.Normalize(partners, sponsors)
	teamProfiles, teamDiags := s.norm.NormalizeTeams(teams, set.CapitalPartners)
	s.logDiagnostics(append(set.Diagnostics, teamDiags...))

	return ProfileSet{
		PreferenceKeys:  set.Keys,
		CapitalPartners: set.CapitalPartners,
		Sponsors:        set.Sponsors,
		PartnerTeams:    teamProfiles,
	}, nil
}

// FilterProfiles applies a preference/ticket filter to every category.
// Unknown keys and malformed filter values are dropped, not errors.
func (s *Service) FilterProfiles(ctx context.Context, spec profile.FilterSpec) (ProfileSet, error) {
	set, err := s.Profiles(ctx)
	if err != nil {
		return ProfileSet{}, err
	}

	keys := s.norm.Keys()
	set.CapitalPartners = profile.Filter(set.CapitalPartners, keys, spec)
	set.Sponsors = profile.Filter(set.Sponsors, keys, spec)
	set.PartnerTeams = profile.Filter(set.PartnerTeams, keys, spec)
	return set, nil
}

// Pairings runs the sponsor-to-capital matching over the current book.
func (s *Service) Pairings(ctx context.Context) (match.Result, error) {
	set, err := s.Profiles(ctx)
	if err != nil {
		return match.Result{}, err
	}
	result := match.Compute(set.Sponsors, set.CapitalPartners, set.PartnerTeams)
	zap.L().Info("dealflow: computed pairings",
		zap.Int("sponsors_matched", len(result.BySponsor)),
	)
	return result, nil
}

// Quality reruns normalization over the live book and returns every
// diagnostic instead of logging them, for the data-quality report.
func (s *Service) Quality(ctx context.Context) ([]profile.Diagnostic, error) {
	partners, err := s.store.ListCapitalPartners(ctx, store.ListFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "dealflow: list capital partners")
	}
	sponsors, err := s.store.ListSponsors(ctx, store.ListFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "dealflow: list sponsors")
	}
	teams, err := s.store.ListPartnerTeams(ctx, store.ListFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "dealflow: list partner teams")
	}

	set := s.norm.Normalize(partners, sponsors)
	_, teamDiags := s.norm.NormalizeTeams(teams, set.CapitalPartners)
	return append(set.Diagnostics, teamDiags...), nil
}

func (s *Service) logDiagnostics(diags []profile.Diagnostic) {
	for _, d := range diags {
		zap.L().Debug("dealflow: normalization diagnostic",
			zap.String("diagnostic", string(d.Kind)),
			zap.String("category", string(d.Category)),
			zap.String("entity_id", d.EntityID),
			zap.String("field", d.Field),
			zap.String("value", d.Value),
		)
	}
}

// Capital partner operations

func (s *Service) CreateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	if err := s.store.CreateCapitalPartner(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, model.KindCapitalPartner, rec.ID, model.AuditCreate, rec.Name)
	return nil
}

func (s *Service) GetCapitalPartner(ctx context.Context, id string) (*model.CapitalPartnerRecord, error) {
	return s.store.GetCapitalPartner(ctx, id)
}

func (s *Service) ListCapitalPartners(ctx context.Context, filter store.ListFilter) ([]model.CapitalPartnerRecord, error) {
	return s.store.ListCapitalPartners(ctx, filter)
}

func (s *Service) UpdateCapitalPartner(ctx context.Context, rec *model.CapitalPartnerRecord) error {
	if err := s.store.UpdateCapitalPartner(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, model.KindCapitalPartner, rec.ID, model.AuditUpdate, rec.Name)
	return nil
}

func (s *Service) DeleteCapitalPartner(ctx context.Context, id string) error {
	if err := s.store.DeleteCapitalPartner(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, model.KindCapitalPartner, id, model.AuditDelete, "")
	return nil
}

// Sponsor operations

func (s *Service) CreateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	if err := s.store.CreateSponsor(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, model.KindSponsor, rec.ID, model.AuditCreate, rec.Name)
	return nil
}

func (s *Service) GetSponsor(ctx context.Context, id string) (*model.SponsorRecord, error) {
	return s.store.GetSponsor(ctx, id)
}

func (s *Service) ListSponsors(ctx context.Context, filter store.ListFilter) ([]model.SponsorRecord, error) {
	return s.store.ListSponsors(ctx, filter)
}

func (s *Service) UpdateSponsor(ctx context.Context, rec *model.SponsorRecord) error {
	if err := s.store.UpdateSponsor(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, model.KindSponsor, rec.ID, model.AuditUpdate, rec.Name)
	return nil
}

func (s *Service) DeleteSponsor(ctx context.Context, id string) error {
	if err := s.store.DeleteSponsor(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, model.KindSponsor, id, model.AuditDelete, "")
	return nil
}

// Partner team operations

func (s *Service) CreatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	if err := s.checkTeamParent(ctx, rec); err != nil {
		return err
	}
	if err := s.store.CreatePartnerTeam(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, model.KindPartnerTeam, rec.ID, model.AuditCreate, rec.Name)
	return nil
}

// checkTeamParent rejects a team whose capital partner back-reference points
// nowhere. An empty reference is allowed; normalization flags it later.
func (s *Service) checkTeamParent(ctx context.Context, rec *model.PartnerTeamRecord) error {
	if rec.CapitalPartnerID == "" {
		return nil
	}
	if _, err := s.store.GetCapitalPartner(ctx, rec.CapitalPartnerID); err != nil {
		return eris.Wrapf(err, "dealflow: partner team parent %s", rec.CapitalPartnerID)
	}
	return nil
}

func (s *Service) GetPartnerTeam(ctx context.Context, id string) (*model.PartnerTeamRecord, error) {
	return s.store.GetPartnerTeam(ctx, id)
}

func (s *Service) ListPartnerTeams(ctx context.Context, filter store.ListFilter) ([]model.PartnerTeamRecord, error) {
	return s.store.ListPartnerTeams(ctx, filter)
}

func (s *Service) UpdatePartnerTeam(ctx context.Context, rec *model.PartnerTeamRecord) error {
	if err := s.store.UpdatePartnerTeam(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, model.KindPartnerTeam, rec.ID, model.AuditUpdate, rec.Name)
	return nil
}

func (s *Service) DeletePartnerTeam(ctx context.Context, id string) error {
	if err := s.store.DeletePartnerTeam(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, model.KindPartnerTeam, id, model.AuditDelete, "")
	return nil
}

// Archive flips the archived flag on a single record.
func (s *Service) Archive(ctx context.Context, kind model.Kind, id string) error {
	if err := s.store.SetArchived(ctx, kind, id, true); err != nil {
		return err
	}
	s.audit(ctx, kind, id, model.AuditArchive, "")
	return nil
}

// Restore brings an archived record back into the live book.
func (s *Service) Restore(ctx context.Context, kind model.Kind, id string) error {
	if err := s.store.SetArchived(ctx, kind, id, false); err != nil {
		return err
	}
	s.audit(ctx, kind, id, model.AuditRestore, "")
	return nil
}

// Rates returns the stored market rate book.
func (s *Service) Rates(ctx context.Context) ([]model.MarketRate, error) {
	return s.store.ListRates(ctx)
}

// Audit returns the newest audit entries.
func (s *Service) Audit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	return s.store.ListAudit(ctx, limit)
}

// audit appends a trail entry; failures are logged, never propagated, so a
// broken trail cannot block CRM writes.
func (s *Service) audit(ctx context.Context, kind model.Kind, id string, action model.AuditAction, detail string) {
	err := s.store.AppendAudit(ctx, model.AuditEntry{
		Kind:     kind,
		EntityID: id,
		Action:   action,
		Detail:   detail,
		Actor:    s.actor,
	})
	if err != nil {
		zap.L().Warn("dealflow: audit append failed",
			zap.String("kind", string(kind)),
			zap.String("entity_id", id),
			zap.Error(err),
		)
	}
}

// ImportFile is the bulk import payload: any subset of the three collections.
type ImportFile struct {
	CapitalPartners []model.CapitalPartnerRecord `json:"capital_partners"`
	Sponsors        []model.SponsorRecord        `json:"sponsors"`
	PartnerTeams    []model.PartnerTeamRecord    `json:"partner_teams"`
}

// ImportSummary counts what an import created.
type ImportSummary struct {
	CapitalPartners int `json:"capital_partners"`
	Sponsors        int `json:"sponsors"`
	PartnerTeams    int `json:"partner_teams"`
}

func (sum ImportSummary) String() string {
	return fmt.Sprintf("%d capital partners, %d sponsors, %d partner teams",
		sum.CapitalPartners, sum.Sponsors, sum.PartnerTeams)
}

// Import creates every record in a bulk payload. Provided ids are kept so
// exports reload under stable identifiers; missing ids are generated by the
// store. Teams import after partners so parent checks see fresh records.
func (s *Service) Import(ctx context.Context, data []byte) (ImportSummary, error) {
	var file ImportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return ImportSummary{}, eris.Wrap(err, "dealflow: parse import payload")
	}

	var sum ImportSummary
	for i := range file.CapitalPartners {
		rec := file.CapitalPartners[i]
		if err := s.store.CreateCapitalPartner(ctx, &rec); err != nil {
			return sum, eris.Wrapf(err, "dealflow: import capital partner %d", i)
		}
		s.audit(ctx, model.KindCapitalPartner, rec.ID, model.AuditImport, rec.Name)
		sum.CapitalPartners++
	}
	for i := range file.Sponsors {
		rec := file.Sponsors[i]
		if err := s.store.CreateSponsor(ctx, &rec); err != nil {
			return sum, eris.Wrapf(err, "dealflow: import sponsor %d", i)
		}
		s.audit(ctx, model.KindSponsor, rec.ID, model.AuditImport, rec.Name)
		sum.Sponsors++
	}
	for i := range file.PartnerTeams {
		rec := file.PartnerTeams[i]
		if err := s.checkTeamParent(ctx, &rec); err != nil {
			return sum, eris.Wrapf(err, "dealflow: import partner team %d", i)
		}
		if err := s.store.CreatePartnerTeam(ctx, &rec); err != nil {
			return sum, eris.Wrapf(err, "dealflow: import partner team %d", i)
		}
		s.audit(ctx, model.KindPartnerTeam, rec.ID, model.AuditImport, rec.Name)
		sum.PartnerTeams++
	}

	zap.L().Info("dealflow: import complete",
		zap.Int("capital_partners", sum.CapitalPartners),
		zap.Int("sponsors", sum.Sponsors),
		zap.Int("partner_teams", sum.PartnerTeams),
	)
	return sum, nil
}
