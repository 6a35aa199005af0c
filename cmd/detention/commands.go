package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/xraph/detention"
	"github.com/xraph/detention/api"
	audithook "github.com/xraph/detention/audit_hook"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/internal/config"
	"github.com/xraph/detention/internal/logger"
	"github.com/xraph/detention/observability"
	"github.com/xraph/detention/store/driver"
	"github.com/xraph/detention/student"
)

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"serve":       serveCmd,
	"migrate":     migrateCmd,
	"classes":     classesCmd,
	"add-class":   addClassCmd,
	"students":    studentsCmd,
	"add-student": addStudentCmd,
	"import":      importCmd,
	"add":         addCmd,
	"serve45":     serve45Cmd,
	"undo":        undoCmd,
	"last":        lastCmd,
	"history":     historyCmd,
	"reconcile":   reconcileCmd,
}

// env is what every command needs once flags and config are resolved.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	tracker *detention.Tracker
	fs      *pflag.FlagSet
}

// setup parses flags, loads config and opens the tracker. register adds
// command-specific flags. The caller must call close.
func setup(ctx context.Context, name string, args []string, stderr io.Writer, register func(*pflag.FlagSet), opts ...detention.Option) (*env, func(), error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.Flags(fs)
	if register != nil {
		register(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return nil, nil, err
	}

	out := stderr
	if name == "serve" {
		out = os.Stdout
	}
	log := logger.NewWithWriter(out, cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	st, err := driver.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	opts = append([]detention.Option{detention.WithLogger(logger.Slog(log))}, opts...)
	tr := detention.New(st, opts...)

	if !cfg.DisableMigrate {
		if err := tr.Start(ctx); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
	}

	closeFn := func() {
		if err := tr.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}
	return &env{cfg: cfg, log: log, tracker: tr, fs: fs}, closeFn, nil
}

func serveCmd(ctx context.Context, args []string, _, stderr io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var auditLog zerolog.Logger
	audit := audithook.New(audithook.RecorderFunc(func(_ context.Context, e *audithook.AuditEvent) error {
		auditLog.Info().
			Str("action", e.Action).
			Str("resource", e.Resource).
			Str("resource_id", e.ResourceID).
			Str("severity", e.Severity).
			Fields(e.Metadata).
			Msg("audit")
		return nil
	}))

	e, closeFn, err := setup(ctx, "serve", args, stderr, nil,
		detention.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
		detention.WithPlugin(audit),
	)
	if err != nil {
		return err
	}
	defer closeFn()
	auditLog = e.log.With().Str("component", "audit").Logger()

	srvCfg := e.cfg.Server
	server := &http.Server{
		Addr: srvCfg.Address,
		Handler: api.NewRouter(e.tracker, e.log, api.RouterOptions{
			CORS:     e.cfg.CORS,
			Timeout:  srvCfg.RequestTimeout,
			Gatherer: reg,
		}),
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
		IdleTimeout:  srvCfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info().
			Str("address", srvCfg.Address).
			Str("driver", e.cfg.Store.Driver).
			Msg("Detention service started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	e.log.Info().Msg("Shutting down detention service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		e.log.Error().Err(err).Msg("Failed to shutdown gracefully")
		return err
	}

	e.log.Info().Msg("Detention service stopped")
	return nil
}

func migrateCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	e, closeFn, err := setup(ctx, "migrate", args, stderr, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	// setup already migrated unless disabled; migrate always runs.
	if e.cfg.DisableMigrate {
		if err := e.tracker.Store().Migrate(ctx); err != nil {
			return errors.Join(detention.ErrMigrationFailed, err)
		}
	}
	fmt.Fprintf(stdout, "migrations applied (%s)\n", e.cfg.Store.Driver)
	return nil
}

func classesCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	e, closeFn, err := setup(ctx, "classes", args, stderr, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	classes, err := e.tracker.GetClasses(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range classes {
		fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}

func addClassCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	e, closeFn, err := setup(ctx, "add-class", args, stderr, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	c, err := e.tracker.CreateClass(ctx, strings.Join(e.fs.Args(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\t%s\n", c.ID, c.Name)
	return nil
}

func studentsCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var classFlag, sortFlag string
	e, closeFn, err := setup(ctx, "students", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&classFlag, "class", "", "class id")
		fs.StringVar(&sortFlag, "sort", "desc", "order by total: asc or desc")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	classID, err := id.ParseClassID(classFlag)
	if err != nil {
		return fmt.Errorf("--class: %w", err)
	}
	if _, err := e.tracker.GetClass(ctx, classID); err != nil {
		return err
	}
	students, err := e.tracker.GetStudentsByClass(ctx, classID)
	if err != nil {
		return err
	}
	student.SortByTotal(students, student.ParseOrder(sortFlag))

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTOTAL\tOWED\tPROGRESS\tLEVEL")
	for _, s := range students {
		st := s.Standing()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d/%d\t%s\n",
			s.ID, s.Name, st.TotalMinutes, st.Owed, st.Progress, detention.BlockMinutes, st.Level)
	}
	return tw.Flush()
}

func addStudentCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var classFlag string
	e, closeFn, err := setup(ctx, "add-student", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&classFlag, "class", "", "class id")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	classID, err := id.ParseClassID(classFlag)
	if err != nil {
		return fmt.Errorf("--class: %w", err)
	}
	s, err := e.tracker.AddStudent(ctx, classID, strings.Join(e.fs.Args(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\t%s\n", s.ID, s.Name)
	return nil
}

func importCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var classFlag, fileFlag string
	e, closeFn, err := setup(ctx, "import", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&classFlag, "class", "", "class id")
		fs.StringVar(&fileFlag, "file", "", "read names from a file ('-' for stdin)")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	classID, err := id.ParseClassID(classFlag)
	if err != nil {
		return fmt.Errorf("--class: %w", err)
	}

	text := strings.Join(e.fs.Args(), "\n")
	switch fileFlag {
	case "":
	case "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = string(b)
	default:
		b, err := os.ReadFile(fileFlag)
		if err != nil {
			return err
		}
		text = string(b)
	}

	students, err := e.tracker.ImportRoster(ctx, classID, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d students\n", len(students))
	return nil
}

func addCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var studentFlag, noteFlag string
	var minutes int64
	e, closeFn, err := setup(ctx, "add", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&studentFlag, "student", "", "student id")
		fs.Int64Var(&minutes, "minutes", 0, "signed minute adjustment")
		fs.StringVar(&noteFlag, "note", "", "optional note")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	studentID, err := id.ParseStudentID(studentFlag)
	if err != nil {
		return fmt.Errorf("--student: %w", err)
	}
	if _, err := e.tracker.AddEntry(ctx, studentID, minutes, noteFlag); err != nil {
		return err
	}
	return printStanding(ctx, e.tracker, studentID, stdout)
}

func serve45Cmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return studentOp(ctx, "serve45", args, stdout, stderr, func(tr *detention.Tracker, sid id.StudentID) error {
		_, err := tr.MarkServed45(ctx, sid)
		return err
	})
}

func undoCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return studentOp(ctx, "undo", args, stdout, stderr, func(tr *detention.Tracker, sid id.StudentID) error {
		e, err := tr.UndoLastEntry(ctx, sid)
		if err == nil && e == nil {
			fmt.Fprintln(stdout, "nothing to undo")
		}
		return err
	})
}

func lastCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return studentOp(ctx, "last", args, stdout, stderr, func(tr *detention.Tracker, sid id.StudentID) error {
		en, err := tr.LatestEntry(ctx, sid)
		if errors.Is(err, detention.ErrEntryNotFound) {
			fmt.Fprintln(stdout, "no entries")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "undo would remove %+d minutes from %s",
			en.DeltaMinutes, en.Timestamp.Local().Format(time.DateTime))
		if en.Note != "" {
			fmt.Fprintf(stdout, " (%s)", en.Note)
		}
		fmt.Fprintln(stdout)
		return nil
	})
}

func studentOp(ctx context.Context, name string, args []string, stdout, stderr io.Writer, op func(*detention.Tracker, id.StudentID) error) error {
	var studentFlag string
	e, closeFn, err := setup(ctx, name, args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&studentFlag, "student", "", "student id")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	studentID, err := id.ParseStudentID(studentFlag)
	if err != nil {
		return fmt.Errorf("--student: %w", err)
	}
	if err := op(e.tracker, studentID); err != nil {
		return err
	}
	return printStanding(ctx, e.tracker, studentID, stdout)
}

func historyCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var studentFlag string
	var limit int
	e, closeFn, err := setup(ctx, "history", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&studentFlag, "student", "", "student id")
		fs.IntVar(&limit, "limit", 0, "maximum entries to show (0 for all)")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	studentID, err := id.ParseStudentID(studentFlag)
	if err != nil {
		return fmt.Errorf("--student: %w", err)
	}
	if _, err := e.tracker.GetStudent(ctx, studentID); err != nil {
		return err
	}
	entries, err := e.tracker.ListEntries(ctx, studentID, entry.ListOpts{Limit: limit})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMINUTES\tSERVED\tNOTE")
	for _, en := range entries {
		served := ""
		if en.Served45 {
			served = "yes"
		}
		fmt.Fprintf(tw, "%s\t%+d\t%s\t%s\n",
			en.Timestamp.Local().Format(time.DateTime), en.DeltaMinutes, served, en.Note)
	}
	return tw.Flush()
}

func reconcileCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var studentFlag, classFlag string
	e, closeFn, err := setup(ctx, "reconcile", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&studentFlag, "student", "", "student id")
		fs.StringVar(&classFlag, "class", "", "class id")
	})
	if err != nil {
		return err
	}
	defer closeFn()

	switch {
	case studentFlag != "":
		studentID, err := id.ParseStudentID(studentFlag)
		if err != nil {
			return fmt.Errorf("--student: %w", err)
		}
		drift, err := e.tracker.Reconcile(ctx, studentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\tdrift %+d\n", studentID, drift)
		return nil

	case classFlag != "":
		classID, err := id.ParseClassID(classFlag)
		if err != nil {
			return fmt.Errorf("--class: %w", err)
		}
		repaired, err := e.tracker.ReconcileClass(ctx, classID)
		for sid, drift := range repaired {
			fmt.Fprintf(stdout, "%s\tdrift %+d\n", sid, drift)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d totals repaired\n", len(repaired))
		return nil

	default:
		return errors.New("reconcile: --student or --class is required")
	}
}

func printStanding(ctx context.Context, tr *detention.Tracker, studentID id.StudentID, stdout io.Writer) error {
	s, err := tr.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	st := s.Standing()
	fmt.Fprintf(stdout, "%s: %d minutes, %d owed, %d/%d toward next (%s)\n",
		s.Name, st.TotalMinutes, st.Owed, st.Progress, detention.BlockMinutes, st.Level)
	return nil
}
