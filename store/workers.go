// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/chantier/auth"
	"github.com/danielhkuo/chantier/models"
)

func (s *PostgresStore) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone FROM workers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	workers := []models.Worker{}
	index := make(map[string]int)
	for rows.Next() {
		var w models.Worker
		var email, phone sql.NullString
		if err := rows.Scan(&w.ID, &w.Name, &email, &phone); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		w.Email = stringPtr(email)
		w.Phone = stringPtr(phone)
		w.Jobs = []models.WorkerJob{}
		index[w.ID] = len(workers)
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jobs, err := listJobs(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	for workerID, list := range jobs {
		if i, ok := index[workerID]; ok {
			workers[i].Jobs = list
		}
	}
	return workers, nil
}

func (s *PostgresStore) GetWorker(ctx context.Context, id string) (models.Worker, error) {
	return getWorker(ctx, s.db, id)
}

func getWorker(ctx context.Context, q queryer, id string) (models.Worker, error) {
	var w models.Worker
	var email, phone sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, name, email, phone FROM workers WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Worker{}, fmt.Errorf("worker %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Worker{}, fmt.Errorf("get worker: %w", err)
	}
	w.Email = stringPtr(email)
	w.Phone = stringPtr(phone)

	jobs, err := listJobs(ctx, q, id)
	if err != nil {
		return models.Worker{}, err
	}
	w.Jobs = jobs[id]
	if w.Jobs == nil {
		w.Jobs = []models.WorkerJob{}
	}
	return w, nil
}

// listJobs groups jobs by worker id; an empty workerID lists every job
func listJobs(ctx context.Context, q queryer, workerID string) (map[string][]models.WorkerJob, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT j.worker_id, j.id, j.project_id, COALESCE(NULLIF(p.address, ''), p.name, j.chantier_name),
			j.job_type, j.start_date, j.end_date
		FROM worker_jobs j
		LEFT JOIN projects p ON p.id = j.project_id
		WHERE ($1 = '' OR j.worker_id = $1)
		ORDER BY j.start_date, j.id
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("query worker jobs: %w", err)
	}
	defer rows.Close()

	jobs := make(map[string][]models.WorkerJob)
	for rows.Next() {
		var (
			owner              string
			j                  models.WorkerJob
			projectID, jobType sql.NullString
			endDate            sql.NullTime
		)
		if err := rows.Scan(&owner, &j.ID, &projectID, &j.ChantierName, &jobType, &j.StartDate, &endDate); err != nil {
			return nil, fmt.Errorf("scan worker job: %w", err)
		}
		j.ProjectID = stringPtr(projectID)
		j.JobType = stringPtr(jobType)
		if endDate.Valid {
			j.EndDate = &endDate.Time
		}
		jobs[owner] = append(jobs[owner], j)
	}
	return jobs, rows.Err()
}

// SaveWorker creates or replaces a worker. Jobs are replaced as a set.
func (s *PostgresStore) SaveWorker(ctx context.Context, in models.WorkerInput, create bool) (models.Worker, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.Worker{}, invalidf("worker name is required")
	}
	if in.ID == "" {
		id, err := auth.NewWorkerID()
		if err != nil {
			return models.Worker{}, err
		}
		in.ID = id
	}

	var saved models.Worker
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if create {
			_, err := tx.ExecContext(ctx, `INSERT INTO workers (id, name, email, phone) VALUES ($1, $2, $3, $4)`,
				in.ID, in.Name, trimmedOrNil(in.Email), trimmedOrNil(in.Phone))
			if err != nil {
				return classify(err, "create worker")
			}
		} else {
			res, err := tx.ExecContext(ctx, `UPDATE workers SET name = $2, email = $3, phone = $4, updated_at = NOW() WHERE id = $1`,
				in.ID, in.Name, trimmedOrNil(in.Email), trimmedOrNil(in.Phone))
			if err != nil {
				return classify(err, "update worker")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("worker %q: %w", in.ID, ErrNotFound)
			}
			if in.Jobs == nil {
				var err error
				saved, err = getWorker(ctx, tx, in.ID)
				return err
			}
		}

		if err := replaceJobs(ctx, tx, in.ID, in.Jobs); err != nil {
			return err
		}

		var err error
		saved, err = getWorker(ctx, tx, in.ID)
		return err
	})
	return saved, err
}

func replaceJobs(ctx context.Context, tx *sql.Tx, workerID string, jobs []models.WorkerJobInput) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM worker_jobs WHERE worker_id = $1`, workerID); err != nil {
		return classify(err, "delete worker jobs")
	}

	for _, job := range jobs {
		chantier := strings.TrimSpace(job.ChantierName)
		if chantier == "" {
			return invalidf("job chantierName is required")
		}
		start, err := parseDate(job.StartDate)
		if err != nil {
			return err
		}
		if start == nil {
			return invalidf("job startDate is required")
		}
		var end *time.Time
		if job.EndDate != nil {
			if end, err = parseDate(*job.EndDate); err != nil {
				return err
			}
		}
		if end != nil && start.After(*end) {
			return invalidf("job startDate must not be after endDate")
		}
		jobType, err := workTypeParam(job.JobType)
		if err != nil {
			return err
		}

		projectID, err := projectByChantier(ctx, tx, chantier)
		if err != nil {
			return err
		}

		id := job.ID
		if id == "" {
			id = auth.NewJobID()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO worker_jobs (id, worker_id, project_id, chantier_name, job_type, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, workerID, nullString(projectID), chantier, jobType, start, end)
		if err != nil {
			return classify(err, "insert worker job")
		}
	}
	return nil
}

func (s *PostgresStore) DeleteWorker(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("worker %q: %w", id, ErrNotFound)
	}
	return nil
}
