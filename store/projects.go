// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/danielhkuo/chantier/auth"
	"github.com/danielhkuo/chantier/db"
	"github.com/danielhkuo/chantier/models"
)

const projectColumns = `id, name, address, client_name, status, devis_status, invoice_count, percentage_paid,
	start_date, end_date, is_demo, has_data, hidden, is_system, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p                          models.Project
		address, clientName, devis sql.NullString
		startDate, endDate         sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &address, &clientName, &p.Status, &devis, &p.InvoiceCount, &p.PercentagePaid,
		&startDate, &endDate, &p.IsDemo, &p.HasData, &p.Hidden, &p.IsSystem, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}
	p.Address = stringPtr(address)
	p.ClientName = stringPtr(clientName)
	p.DevisStatus = stringPtr(devis)
	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	return p, nil
}

// ListProjects returns non-demo projects in creation order
func (s *PostgresStore) ListProjects(ctx context.Context, includeHidden bool) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE NOT is_demo AND ($1 OR NOT hidden)
		ORDER BY created_at, id
	`, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// CreateProject inserts a project, generating its id when absent
func (s *PostgresStore) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	p := models.Project{Status: models.ProjectDraft}
	if in.ID != nil && strings.TrimSpace(*in.ID) != "" {
		p.ID = strings.TrimSpace(*in.ID)
	} else {
		p.ID = auth.NewProjectID(time.Now())
	}
	if err := applyProjectInput(&p, in); err != nil {
		return models.Project{}, err
	}
	if in.IsDemo != nil {
		p.IsDemo = *in.IsDemo
	}
	if p.Name == "" {
		p.Name = "Untitled Project"
	}

	created, err := scanProject(s.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, name, address, client_name, status, devis_status, invoice_count, percentage_paid,
			start_date, end_date, is_demo, has_data, hidden, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+projectColumns,
		p.ID, p.Name, nullString(p.Address), nullString(p.ClientName), p.Status, nullString(p.DevisStatus),
		p.InvoiceCount, p.PercentagePaid, p.StartDate, p.EndDate, p.IsDemo, p.HasData, p.Hidden,
		slices.Contains(db.SystemProjectIDs, p.ID)))
	if err != nil {
		return models.Project{}, classify(err, "create project")
	}
	return created, nil
}

// UpdateProject applies the non-nil fields of in
func (s *PostgresStore) UpdateProject(ctx context.Context, id string, in models.ProjectInput) (models.Project, error) {
	var updated models.Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanProject(tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		if err := applyProjectInput(&p, in); err != nil {
			return err
		}

		updated, err = scanProject(tx.QueryRowContext(ctx, `
			UPDATE projects SET
				name = $2, address = $3, client_name = $4, status = $5, devis_status = $6,
				invoice_count = $7, percentage_paid = $8, start_date = $9, end_date = $10,
				has_data = $11, hidden = $12, updated_at = NOW()
			WHERE id = $1
			RETURNING `+projectColumns,
			p.ID, p.Name, nullString(p.Address), nullString(p.ClientName), p.Status, nullString(p.DevisStatus),
			p.InvoiceCount, p.PercentagePaid, p.StartDate, p.EndDate, p.HasData, p.Hidden))
		return classify(err, "update project")
	})
	return updated, err
}

// DeleteProject removes a project and its sections. System projects are kept.
func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if p.IsSystem {
		return fmt.Errorf("project %q is a system project: %w", id, ErrConflict)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND NOT is_system`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// projectByChantier finds the project whose address or name equals name
func projectByChantier(ctx context.Context, q queryer, name string) (*string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM projects
		WHERE address = $1 OR name = $1
		ORDER BY COALESCE(address = $1, FALSE) DESC, created_at
		LIMIT 1
	`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find project for %q: %w", name, err)
	}
	return &id, nil
}

func applyProjectInput(p *models.Project, in models.ProjectInput) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		p.Address = emptyToNil(*in.Address)
	}
	if p.Name == "" && p.Address != nil {
		p.Name = *p.Address
	}
	if in.ClientName != nil {
		p.ClientName = emptyToNil(*in.ClientName)
	}
	if in.Status != nil {
		status, ok := models.ParseProjectStatus(*in.Status)
		if !ok {
			return invalidf("unknown project status %q", *in.Status)
		}
		p.Status = status
	}
	if in.DevisStatus != nil {
		if strings.TrimSpace(*in.DevisStatus) == "" {
			p.DevisStatus = nil
		} else {
			devis, ok := models.ParseDevisStatus(*in.DevisStatus)
			if !ok {
				return invalidf("unknown devis status %q", *in.DevisStatus)
			}
			p.DevisStatus = &devis
		}
	}
	if in.InvoiceCount != nil {
		if *in.InvoiceCount < 0 {
			return invalidf("invoiceCount must not be negative")
		}
		p.InvoiceCount = *in.InvoiceCount
	}
	if in.PercentagePaid != nil {
		if *in.PercentagePaid < 0 || *in.PercentagePaid > 100 {
			return invalidf("percentagePaid must be between 0 and 100")
		}
		p.PercentagePaid = *in.PercentagePaid
	}
	if in.StartDate != nil {
		t, err := parseDate(*in.StartDate)
		if err != nil {
			return err
		}
		p.StartDate = t
	}
	if in.EndDate != nil {
		t, err := parseDate(*in.EndDate)
		if err != nil {
			return err
		}
		p.EndDate = t
	}
	if p.StartDate != nil && p.EndDate != nil && p.StartDate.After(*p.EndDate) {
		return invalidf("startDate must not be after endDate")
	}
	if in.HasData != nil {
		p.HasData = *in.HasData
	}
	if in.Hidden != nil {
		p.Hidden = *in.Hidden
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	v, err := parseTimestamp(&s)
	if err != nil || v == nil {
		return nil, err
	}
	t := v.(time.Time)
	return &t, nil
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
