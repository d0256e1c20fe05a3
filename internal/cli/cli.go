// internal/cli/cli.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dalemusser/mandateidx/app"
	"github.com/dalemusser/mandateidx/config"
	"github.com/dalemusser/mandateidx/internal/indexes"
	"github.com/dalemusser/mandateidx/metrics"
	"github.com/dalemusser/mandateidx/toolkit/db/mongodb"
	"github.com/dalemusser/mandateidx/version"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var (
	errDuplicatesFound = errors.New("duplicate keys found")
	errPlanMismatch    = errors.New("query plans do not use the expected indexes")
)

// command runs against a database handle scoped to the configured database.
type command struct {
	name    string
	summary string
	run     func(r *runner, ctx context.Context) error
}

var commands = []command{
	{"ensure", "create missing indexes (default)", (*runner).ensure},
	{"verify", "check every index exists with the expected definition", (*runner).verify},
	{"list", "list all indexes on the managed collections", (*runner).list},
	{"duplicates", "report documents that violate the unique indexes", (*runner).duplicates},
	{"explain", "check the query planner picks the expected index for each access path", (*runner).explain},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// Run is the entrypoint used by cmd/mandateidx.
//
// binName is the CLI name to show in help/usage text; args exclude the binary
// name. It returns a process exit code; callers should os.Exit(Run(...)).
func Run(ctx context.Context, binName string, args []string) int {
	return run(ctx, binName, args, os.Stdout, os.Stderr, connect)
}

type connectFunc func(ctx context.Context, cfg *config.Config, appName string) (*mongo.Client, error)

func connect(ctx context.Context, cfg *config.Config, appName string) (*mongo.Client, error) {
	pool := mongodb.DefaultPoolConfig()
	pool.ConnectTimeout = cfg.DBConnectTimeout
	pool.AppName = appName
	return mongodb.Connect(ctx, cfg.Mongo.URI, pool)
}

func run(ctx context.Context, binName string, args []string, stdout, stderr io.Writer, dial connectFunc) int {
	name := "ensure"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	switch name {
	case "help":
		usage(stdout, binName)
		return ExitOK
	case "version":
		fmt.Fprintf(stdout, "%s %s\n", binName, version.String())
		return ExitOK
	}
	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %q\n\n", name)
		usage(stderr, binName)
		return ExitUsage
	}

	fs := pflag.NewFlagSet(binName+" "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	sampleID := fs.String("sample_mandate_id", "M1", "explain: mandateId used in the sample queries")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s %s [flags]\n\n%s\n\nFlags:\n", binName, cmd.name, cmd.summary)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return ExitUsage
	}

	err := app.Run(ctx, app.Hooks[*mongo.Client]{
		Name: binName + " " + cmd.name,
		LoadConfig: func(logger *zap.Logger) (*config.Config, error) {
			return config.Load(logger, fs)
		},
		ConnectDB: func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*mongo.Client, error) {
			client, err := dial(ctx, cfg, binName)
			if err != nil {
				return nil, &indexes.ConnectionError{Op: "connect", Err: err}
			}
			logger.Info("connected",
				zap.String("version", version.String()),
				zap.String("uri", mongodb.RedactURI(cfg.Mongo.URI)),
				zap.String("database", cfg.Mongo.Database))
			return client, nil
		},
		Task: func(ctx context.Context, cfg *config.Config, client *mongo.Client, logger *zap.Logger) error {
			db := client.Database(cfg.Mongo.Database)
			r := newRunner(cfg, indexes.NewMongoStore(db), logger, stdout)
			r.sampleMandateID = *sampleID
			return cmd.run(r, ctx)
		},
		Close: func(ctx context.Context, client *mongo.Client) error {
			return client.Disconnect(ctx)
		},
	})
	return exitCode(err, stderr, binName)
}

func exitCode(err error, stderr io.Writer, binName string) int {
	if err == nil {
		return ExitOK
	}
	for _, e := range multierr.Errors(err) {
		fmt.Fprintf(stderr, "%s: %v\n", binName, e)
	}
	if errors.Is(err, app.ErrConfig) {
		return ExitUsage
	}
	return ExitFailure
}

func usage(w io.Writer, binName string) {
	fmt.Fprintf(w, "Usage: %s [command] [flags]\n\n", binName)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "  version     print build information")
	fmt.Fprintln(w, "  help        show this help")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run '%s <command> --help' for flags. Every flag can also be set as\n", binName)
	fmt.Fprintf(w, "%s_<FLAG> in the environment or in config.yaml.\n", config.EnvPrefix)
}

// runner holds what every command needs once connected.
type runner struct {
	cfg             *config.Config
	prov            *indexes.Provisioner
	logger          *zap.Logger
	out             io.Writer
	sampleMandateID string
}

func newRunner(cfg *config.Config, store indexes.Store, logger *zap.Logger, out io.Writer) *runner {
	prov := indexes.New(store,
		indexes.WithSpecs(indexes.Catalog(cfg.Provision.ReferenceIndexes)...),
		indexes.WithLogger(logger),
		indexes.WithConcurrency(cfg.Provision.Concurrent),
		indexes.WithDuplicateSamples(cfg.Provision.DuplicateSamples),
		indexes.WithDatabase(cfg.Mongo.Database),
	)
	return &runner{cfg: cfg, prov: prov, logger: logger, out: out, sampleMandateID: "M1"}
}

func (r *runner) ensure(ctx context.Context) error {
	rep, err := r.prov.Ensure(ctx)
	r.recordMetrics(rep, err)
	if rerr := renderReport(r.out, r.cfg.Output.Format, "ensure", rep); rerr != nil {
		return multierr.Append(err, rerr)
	}
	if err == nil {
		r.logger.Info("indexes ensured",
			zap.Int("created", rep.Count(indexes.StatusCreated)),
			zap.Int("present", rep.Count(indexes.StatusPresent)))
	}
	return err
}

func (r *runner) verify(ctx context.Context) error {
	rep, err := r.prov.Verify(ctx)
	r.recordMetrics(rep, err)
	if rerr := renderReport(r.out, r.cfg.Output.Format, "verify", rep); rerr != nil {
		return multierr.Append(err, rerr)
	}
	return err
}

func (r *runner) list(ctx context.Context) error {
	inv, err := r.prov.Inventory(ctx)
	if err != nil {
		return err
	}
	return renderInventory(r.out, r.cfg.Output.Format, r.cfg.Mongo.Database, inv, r.prov.Specs())
}

func (r *runner) duplicates(ctx context.Context) error {
	limit := r.cfg.Provision.DuplicateSamples
	if limit <= 0 {
		limit = 10
	}
	dups, err := r.prov.Duplicates(ctx, limit)
	if err != nil {
		return err
	}
	if err := renderDuplicates(r.out, r.cfg.Output.Format, r.cfg.Mongo.Database, dups, r.prov.Specs()); err != nil {
		return err
	}
	for _, d := range dups {
		if len(d) > 0 {
			return errDuplicatesFound
		}
	}
	return nil
}

func (r *runner) explain(ctx context.Context) error {
	shapes := indexes.Shapes(r.sampleMandateID, time.Now().Add(-24*time.Hour))
	checks, err := r.prov.CheckPlans(ctx, shapes)
	if err != nil {
		return err
	}
	if err := renderPlans(r.out, r.cfg.Output.Format, r.cfg.Mongo.Database, checks); err != nil {
		return err
	}
	for _, c := range checks {
		if !c.OK {
			return errPlanMismatch
		}
	}
	return nil
}

func (r *runner) recordMetrics(rep *indexes.Report, err error) {
	path := r.cfg.Output.MetricsTextfile
	if path == "" || rep == nil {
		return
	}
	rec := metrics.NewRecorder(r.logger)
	for _, o := range rep.Outcomes {
		rec.ObserveIndex(r.cfg.Mongo.Database, o.Spec.Collection, o.Spec.Name, string(o.Status), o.Duration)
	}
	rec.Finish(time.Now(), err == nil)
	if werr := rec.WriteTextfile(path); werr != nil {
		r.logger.Warn("cannot write metrics textfile", zap.String("path", path), zap.Error(werr))
	}
}
