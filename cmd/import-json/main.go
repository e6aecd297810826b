// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command import-json moves the legacy JSON files in and out of Postgres.
//
//	import-json import -d $DATABASE_URL -materials data/materials.json -projects projects.json -workers workers.json
//	import-json export -d $DATABASE_URL -out backup/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/chantier/cliparse"
	"github.com/danielhkuo/chantier/db"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/store"
)

type options struct {
	Command       string
	DatabaseURL   string
	MaterialsFile string
	ProjectsFile  string
	WorkersFile   string
	ProjectID     string
	OutDir        string
	DryRun        bool
}

func main() {
	if err := cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("import-json failed", "command", opts.Command, "error", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	if len(args) == 0 {
		return options{}, errors.New("usage: import-json import|export [flags]")
	}
	opts := options{Command: args[0]}
	if opts.Command != "import" && opts.Command != "export" {
		return options{}, fmt.Errorf("unknown command %q (want import or export)", opts.Command)
	}

	fset := flag.NewFlagSet("import-json "+opts.Command, flag.ContinueOnError)
	fset.StringVar(&opts.DatabaseURL, "d", "", "Database URL")
	fset.StringVar(&opts.MaterialsFile, "materials", "", "Materials JSON file")
	fset.StringVar(&opts.ProjectsFile, "projects", "", "Projects JSON file (array)")
	fset.StringVar(&opts.WorkersFile, "workers", "", "Workers JSON file (array)")
	fset.StringVar(&opts.ProjectID, "project", "", "Project the materials belong to")
	fset.StringVar(&opts.OutDir, "out", ".", "Export directory")
	fset.BoolVar(&opts.DryRun, "dry-run", false, "Parse the files without writing")
	if err := fset.Parse(args[1:]); err != nil {
		return options{}, err
	}

	if opts.DatabaseURL == "" {
		opts.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.DatabaseURL == "" && !opts.DryRun {
		return options{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if opts.Command == "import" && opts.MaterialsFile == "" && opts.ProjectsFile == "" && opts.WorkersFile == "" {
		return options{}, errors.New("nothing to import: pass -materials, -projects or -workers")
	}
	return opts, nil
}

// bundle is the parsed content of the import files
type bundle struct {
	Materials *models.MaterialsDocument
	Projects  []models.ProjectInput
	Workers   []models.WorkerInput
}

func readBundle(opts options) (bundle, error) {
	var b bundle
	if opts.MaterialsFile != "" {
		var doc models.MaterialsDocument
		if err := readJSON(opts.MaterialsFile, &doc); err != nil {
			return bundle{}, err
		}
		if doc.Sections == nil {
			return bundle{}, fmt.Errorf("%s: missing 'sections' field", opts.MaterialsFile)
		}
		b.Materials = &doc
	}
	if opts.ProjectsFile != "" {
		if err := readJSON(opts.ProjectsFile, &b.Projects); err != nil {
			return bundle{}, err
		}
	}
	if opts.WorkersFile != "" {
		if err := readJSON(opts.WorkersFile, &b.Workers); err != nil {
			return bundle{}, err
		}
	}
	return b, nil
}

func (b bundle) itemCount() int {
	if b.Materials == nil {
		return 0
	}
	n := 0
	for _, s := range b.Materials.Sections {
		n += len(s.Items)
	}
	return n
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func run(ctx context.Context, opts options) error {
	var b bundle
	if opts.Command == "import" {
		var err error
		if b, err = readBundle(opts); err != nil {
			return err
		}
		slog.Info("parsed import files",
			"projects", len(b.Projects),
			"workers", len(b.Workers),
			"items", humanize.Comma(int64(b.itemCount())))
		if opts.DryRun {
			slog.Info("dry run, nothing written")
			return nil
		}
	}

	conn, err := db.Open(ctx, opts.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.CreateSchema(conn); err != nil {
		return err
	}
	s := store.NewPostgresStore(conn)

	if opts.Command == "export" {
		return exportAll(ctx, s, opts)
	}
	return importAll(ctx, s, b, opts.ProjectID)
}

func importAll(ctx context.Context, s *store.PostgresStore, b bundle, projectID string) error {
	// Projects first so materials and worker jobs can link to them
	for _, in := range b.Projects {
		if err := importProject(ctx, s, in); err != nil {
			return err
		}
	}
	for _, in := range b.Workers {
		if _, err := s.SaveWorker(ctx, in, true); errors.Is(err, store.ErrConflict) {
			_, err = s.SaveWorker(ctx, in, false)
			if err != nil {
				return fmt.Errorf("worker %q: %w", in.ID, err)
			}
		} else if err != nil {
			return fmt.Errorf("worker %q: %w", in.ID, err)
		}
	}
	if b.Materials != nil {
		if err := s.SaveMaterials(ctx, *b.Materials, projectID); err != nil {
			return fmt.Errorf("materials: %w", err)
		}
	}
	slog.Info("import complete",
		"projects", len(b.Projects),
		"workers", len(b.Workers),
		"items", humanize.Comma(int64(b.itemCount())))
	return nil
}

func importProject(ctx context.Context, s *store.PostgresStore, in models.ProjectInput) error {
	if in.ID != nil && *in.ID != "" {
		_, err := s.GetProject(ctx, *in.ID)
		if err == nil {
			if _, err := s.UpdateProject(ctx, *in.ID, in); err != nil {
				return fmt.Errorf("project %q: %w", *in.ID, err)
			}
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if _, err := s.CreateProject(ctx, in); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func exportAll(ctx context.Context, s *store.PostgresStore, opts options) error {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return err
	}

	materials, err := s.GetMaterials(ctx, opts.ProjectID)
	if err != nil {
		return err
	}
	projects, err := s.ListProjects(ctx, true)
	if err != nil {
		return err
	}
	workers, err := s.ListWorkers(ctx)
	if err != nil {
		return err
	}
	history, err := s.EditHistory(ctx, 0, 500)
	if err != nil {
		return err
	}

	files := map[string]any{
		"materials.json":    materials,
		"projects.json":     projects,
		"workers.json":      workers,
		"edit-history.json": history,
	}
	for name, v := range files {
		path := filepath.Join(opts.OutDir, name)
		if err := writeJSON(path, v); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		slog.Info("exported", "file", path)
	}
	return nil
}
