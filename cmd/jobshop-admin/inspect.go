package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/data"
	"github.com/fabworks/jobshop/internal/domain/model"
	"github.com/fabworks/jobshop/internal/service"
)

const inspectTimeout = 2 * time.Minute

type ledgerListOptions struct {
	JobID  string
	Limit  int
	Offset int
}

type pruneOptions struct {
	OlderThan time.Duration
	BatchSize int
	Yes       bool
}

func runListEvents(cmdCtx *commandContext, args []string) error {
	opts, err := parseLedgerListFlags("list-events", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, inspectTimeout)
	defer cancel()

	db, _, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	events, err := data.NewEventRepo(db).ListByJob(ctx, opts.JobID, core.Page{
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if len(events) == 0 {
		return writeln(os.Stdout, "(no events found)")
	}
	return renderEventTable(events)
}

func renderEventTable(events []*model.JobEvent) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "CREATED\tCHANGE ID\tACTOR\tFIELDS\tUNDO OF"); err != nil {
		return fmt.Errorf("write event header row: %w", err)
	}

	for _, ev := range events {
		undoOf := "-"
		if ev.Compensates != nil {
			undoOf = *ev.Compensates
		}
		if err := writef(
			tw,
			"%s\t%s\t%s\t%s\t%s\n",
			ev.CreatedAt.Format(time.RFC3339),
			ev.ChangeID,
			ev.ActorID,
			strings.Join(ev.Fields, ","),
			undoOf,
		); err != nil {
			return fmt.Errorf("write event row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush event table: %w", err)
	}
	return nil
}

func runListRejections(cmdCtx *commandContext, args []string) error {
	opts, err := parseLedgerListFlags("list-rejections", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, inspectTimeout)
	defer cancel()

	db, _, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	rejections, err := data.NewRejectionRepo(db).ListByJob(ctx, opts.JobID, core.Page{
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
	if err != nil {
		return fmt.Errorf("list rejections: %w", err)
	}

	if len(rejections) == 0 {
		return writeln(os.Stdout, "(no rejections found)")
	}
	return renderRejectionTable(rejections)
}

func renderRejectionTable(rejections []*model.JobDeltaRejection) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "CREATED\tCHANGE ID\tACTOR\tREASON\tMISMATCHED"); err != nil {
		return fmt.Errorf("write rejection header row: %w", err)
	}

	for _, rej := range rejections {
		mismatched := "-"
		if len(rej.MismatchedFields) > 0 {
			mismatched = strings.Join(rej.MismatchedFields, ",")
		}
		if err := writef(
			tw,
			"%s\t%s\t%s\t%s\t%s\n",
			rej.CreatedAt.Format(time.RFC3339),
			rej.ChangeID,
			rej.ActorID,
			rej.Reason,
			mismatched,
		); err != nil {
			return fmt.Errorf("write rejection row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush rejection table: %w", err)
	}
	return nil
}

type undoOptions struct {
	JobID    string
	ChangeID string
	ActorID  string
	Force    bool
	Yes      bool
}

func parseUndoFlags(args []string) (*undoOptions, error) {
	fs := flag.NewFlagSet("undo-change", flag.ContinueOnError)
	opts := &undoOptions{}
	fs.StringVar(&opts.JobID, "job", "", "job id (required)")
	fs.StringVar(&opts.ChangeID, "change", "", "change id to reverse (required)")
	fs.StringVar(&opts.ActorID, "actor", "admin@jobshop-cli", "actor recorded on the compensating event")
	fs.BoolVar(&opts.Force, "force", false, "revert even when newer changes exist on the job")
	fs.BoolVar(&opts.Yes, "yes", false, "skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse undo-change flags: %w", err)
	}
	if opts.JobID == "" {
		return nil, errors.New("--job is required")
	}
	if opts.ChangeID == "" {
		return nil, errors.New("--change is required")
	}
	return opts, nil
}

func runUndoChange(cmdCtx *commandContext, args []string) error {
	opts, err := parseUndoFlags(args)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(
		"About to write a compensating event reversing change %s on job %s.",
		opts.ChangeID, opts.JobID,
	)
	if confirmErr := confirmAction(opts.Yes, prompt); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, inspectTimeout)
	defer cancel()

	db, _, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	deltas := service.MustNewDeltaService(service.DeltaServiceOptions{
		Jobs:       data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
		Events:     data.NewEventRepo(db),
		Rejections: data.NewRejectionRepo(db),
		Logger:     cmdCtx.Logger,
	})

	event, err := deltas.Undo(ctx, opts.JobID, &model.UndoRequest{
		ChangeID: opts.ChangeID,
		ActorID:  opts.ActorID,
		Force:    opts.Force,
	})
	if err != nil {
		return fmt.Errorf("undo change: %w", err)
	}

	cmdCtx.Logger.Info("change undone",
		"job_id", opts.JobID,
		"undone_change_id", opts.ChangeID,
		"compensating_change_id", event.ChangeID,
		"fields", event.Fields,
	)
	return nil
}

func runPruneRejections(cmdCtx *commandContext, args []string) error {
	opts, err := parsePruneFlags(args)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(
		"About to delete rejection records older than %s from database %q.",
		opts.OlderThan,
		cmdCtx.Config.Postgres.Name,
	)
	if confirmErr := confirmAction(opts.Yes, prompt); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, inspectTimeout)
	defer cancel()

	db, _, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	cutoff := time.Now().UTC().Add(-opts.OlderThan)
	deleted, err := data.NewRejectionRepo(db).PruneOlderThan(ctx, cutoff, opts.BatchSize)
	if err != nil {
		return fmt.Errorf("prune rejections: %w", err)
	}

	cmdCtx.Logger.Info("prune complete", "rows_deleted", deleted, "cutoff", cutoff)
	return nil
}

func runListVersionKeys(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, inspectTimeout)
	defer cancel()

	redisClient, err := maybeConnectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			return writeln(os.Stderr, "Redis is not configured")
		}
		return err
	}
	defer closeInfra(cmdCtx.Logger, nil, redisClient)

	pattern := "jobshop:job-version:*"
	cmdCtx.Logger.Info("scanning redis", "pattern", pattern)

	if err := writef(os.Stdout, "\nCached Job Version Tokens\n"); err != nil {
		return fmt.Errorf("print version key header: %w", err)
	}

	total := 0
	iter := redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		total++

		version, getErr := redisClient.Get(ctx, key).Result()
		if getErr != nil {
			version = "?"
		}
		ttl, ttlErr := redisClient.TTL(ctx, key).Result()
		if ttlErr != nil {
			cmdCtx.Logger.ErrorContext(ctx, "failed to fetch TTL", "key", key, "error", ttlErr)
			continue
		}
		if printErr := writef(os.Stdout, "  %s = %s (TTL: %s)\n", key, version, renderTTL(ttl)); printErr != nil {
			return fmt.Errorf("print version key: %w", printErr)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if total == 0 {
		return writeln(os.Stdout, "(no keys found)")
	}
	return writef(os.Stdout, "\nTotal keys: %d\n", total)
}

func parseLedgerListFlags(name string, args []string) (ledgerListOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := ledgerListOptions{Limit: 50}
	fs.StringVar(&opts.JobID, "job", "", "Job ID to inspect (required)")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of rows to display")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of rows to skip")

	if err := fs.Parse(args); err != nil {
		return ledgerListOptions{}, err
	}
	if strings.TrimSpace(opts.JobID) == "" {
		return ledgerListOptions{}, errors.New("--job is required")
	}
	if opts.Limit <= 0 {
		return ledgerListOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return ledgerListOptions{}, errors.New("--offset must not be negative")
	}
	return opts, nil
}

func parsePruneFlags(args []string) (pruneOptions, error) {
	fs := flag.NewFlagSet("prune-rejections", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := pruneOptions{OlderThan: 90 * 24 * time.Hour, BatchSize: 1000}
	fs.DurationVar(&opts.OlderThan, "older-than", 90*24*time.Hour,
		"Delete rejections created before now minus this duration")
	fs.IntVar(&opts.BatchSize, "batch-size", 1000, "Rows to delete per batch")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return pruneOptions{}, err
	}
	if opts.OlderThan <= 0 {
		return pruneOptions{}, errors.New("--older-than must be greater than zero")
	}
	if opts.BatchSize <= 0 {
		return pruneOptions{}, errors.New("--batch-size must be greater than zero")
	}
	return opts, nil
}

func renderTTL(d time.Duration) string {
	switch {
	case d == -1*time.Second:
		return "no expiry"
	case d == -2*time.Second:
		return "key missing"
	default:
		return d.String()
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
