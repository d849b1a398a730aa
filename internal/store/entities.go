package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

const seekerColumns = `s.id, s.position, s.primary_keyword, s.secondary_keyword, s.experience_years,
	s.english_level, s.salary_min, s.location, s.country_code, s.city, s.can_relocate,
	s.domain_zones, s.uninterested_company_types, s.skills, s.more_info, s.looking_for, s.highlights`

const opportunityColumns = `o.id, o.position, o.primary_keyword, o.secondary_keyword, o.extra_keywords,
	o.exp_years, o.english_level, o.salary_min, o.salary_max, o.location, o.country, o.accept_region,
	o.domain, o.company_type, o.remote_type, o.relocate_type, o.long_description, o.applications_count`

func seekerDest(s *inbox.Seeker) []any {
	return []any{
		&s.ID, &s.Position, &s.PrimaryKeyword, &s.SecondaryKeyword, &s.ExperienceYears,
		&s.EnglishLevel, &s.SalaryMin, &s.Location, &s.CountryCode, &s.City, &s.CanRelocate,
		pq.Array(&s.DomainZones), pq.Array(&s.UninterestedCompanyTypes), pq.Array(&s.Skills),
		&s.MoreInfo, &s.LookingFor, &s.Highlights,
	}
}

func opportunityDest(o *inbox.Opportunity) []any {
	return []any{
		&o.ID, &o.Position, &o.PrimaryKeyword, &o.SecondaryKeyword, pq.Array(&o.ExtraKeywords),
		&o.Experience, &o.EnglishLevel, &o.SalaryMin, &o.SalaryMax, &o.Location, &o.Country, &o.AcceptRegion,
		&o.Domain, &o.CompanyType, &o.RemoteType, &o.RelocateType, &o.LongDescription, &o.ApplicationsCount,
	}
}

// Seekers returns up to limit seekers with id greater than afterID, by id.
func (s *Store) Seekers(ctx context.Context, afterID int64, limit int) ([]*inbox.Seeker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+seekerColumns+` FROM seekers s WHERE s.id > $1 ORDER BY s.id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query seekers: %w", err)
	}
	defer rows.Close()

	var out []*inbox.Seeker
	for rows.Next() {
		seeker := &inbox.Seeker{}
		if err := rows.Scan(seekerDest(seeker)...); err != nil {
			return nil, fmt.Errorf("scan seeker: %w", err)
		}
		out = append(out, seeker)
	}
	return out, rows.Err()
}

// Opportunities returns up to limit opportunities with id greater than afterID, by id.
func (s *Store) Opportunities(ctx context.Context, afterID int64, limit int) ([]*inbox.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities o WHERE o.id > $1 ORDER BY o.id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []*inbox.Opportunity
	for rows.Next() {
		opp := &inbox.Opportunity{}
		if err := rows.Scan(opportunityDest(opp)...); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, opp)
	}
	return out, rows.Err()
}

func (s *Store) Seeker(ctx context.Context, id int64) (*inbox.Seeker, error) {
	seeker := &inbox.Seeker{}
	err := s.db.QueryRowContext(ctx, `SELECT `+seekerColumns+` FROM seekers s WHERE s.id = $1`, id).
		Scan(seekerDest(seeker)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seeker %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query seeker %d: %w", id, err)
	}
	return seeker, nil
}

func (s *Store) Opportunity(ctx context.Context, id int64) (*inbox.Opportunity, error) {
	opp := &inbox.Opportunity{}
	err := s.db.QueryRowContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities o WHERE o.id = $1`, id).
		Scan(opportunityDest(opp)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opportunity %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query opportunity %d: %w", id, err)
	}
	return opp, nil
}

// UpsertSeeker inserts or replaces a seeker row.
func (s *Store) UpsertSeeker(ctx context.Context, seeker *inbox.Seeker) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO seekers (id, position, primary_keyword, secondary_keyword,
		experience_years, english_level, salary_min, location, country_code, city, can_relocate,
		domain_zones, uninterested_company_types, skills, more_info, looking_for, highlights)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET position = EXCLUDED.position,
			primary_keyword = EXCLUDED.primary_keyword, secondary_keyword = EXCLUDED.secondary_keyword,
			experience_years = EXCLUDED.experience_years, english_level = EXCLUDED.english_level,
			salary_min = EXCLUDED.salary_min, location = EXCLUDED.location,
			country_code = EXCLUDED.country_code, city = EXCLUDED.city, can_relocate = EXCLUDED.can_relocate,
			domain_zones = EXCLUDED.domain_zones,
			uninterested_company_types = EXCLUDED.uninterested_company_types, skills = EXCLUDED.skills,
			more_info = EXCLUDED.more_info, looking_for = EXCLUDED.looking_for, highlights = EXCLUDED.highlights`,
		seeker.ID, seeker.Position, seeker.PrimaryKeyword, seeker.SecondaryKeyword,
		seeker.ExperienceYears, string(seeker.EnglishLevel), seeker.SalaryMin, seeker.Location,
		seeker.CountryCode, seeker.City, seeker.CanRelocate,
		pq.Array(nonNil(seeker.DomainZones)), pq.Array(nonNil(seeker.UninterestedCompanyTypes)), pq.Array(nonNil(seeker.Skills)),
		seeker.MoreInfo, seeker.LookingFor, seeker.Highlights)
	if err != nil {
		return fmt.Errorf("upsert seeker %d: %w", seeker.ID, err)
	}
	return nil
}

// UpsertOpportunity inserts or replaces an opportunity row.
func (s *Store) UpsertOpportunity(ctx context.Context, o *inbox.Opportunity) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO opportunities (id, position, primary_keyword, secondary_keyword,
		extra_keywords, exp_years, english_level, salary_min, salary_max, location, country, accept_region,
		domain, company_type, remote_type, relocate_type, long_description, applications_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET position = EXCLUDED.position,
			primary_keyword = EXCLUDED.primary_keyword, secondary_keyword = EXCLUDED.secondary_keyword,
			extra_keywords = EXCLUDED.extra_keywords, exp_years = EXCLUDED.exp_years,
			english_level = EXCLUDED.english_level, salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max, location = EXCLUDED.location, country = EXCLUDED.country,
			accept_region = EXCLUDED.accept_region, domain = EXCLUDED.domain,
			company_type = EXCLUDED.company_type, remote_type = EXCLUDED.remote_type,
			relocate_type = EXCLUDED.relocate_type, long_description = EXCLUDED.long_description,
			applications_count = EXCLUDED.applications_count`,
		o.ID, o.Position, o.PrimaryKeyword, o.SecondaryKeyword, pq.Array(nonNil(o.ExtraKeywords)),
		string(o.Experience), string(o.EnglishLevel), o.SalaryMin, o.SalaryMax, o.Location, o.Country,
		string(o.AcceptRegion), o.Domain, o.CompanyType, string(o.RemoteType), string(o.RelocateType),
		o.LongDescription, o.ApplicationsCount)
	if err != nil {
		return fmt.Errorf("upsert opportunity %d: %w", o.ID, err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
