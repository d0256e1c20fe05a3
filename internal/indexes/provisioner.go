package indexes

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/mandateidx/logging"
	"github.com/dalemusser/mandateidx/toolkit/db/mongodb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDuplicateSamples = 10

// Provisioner ensures a fixed set of indexes exists.
type Provisioner struct {
	store      Store
	specs      []Spec
	logger     *zap.Logger
	concurrent bool
	samples    int
	database   string
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithSpecs replaces the default Core() catalog.
func WithSpecs(specs ...Spec) Option {
	return func(p *Provisioner) { p.specs = specs }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithConcurrency issues the index operations concurrently. The operations
// are independent, so this only changes wall time.
func WithConcurrency(on bool) Option {
	return func(p *Provisioner) { p.concurrent = on }
}

// WithDuplicateSamples sets how many duplicate groups are looked up when a
// unique index cannot be built. 0 disables the lookup.
func WithDuplicateSamples(n int) Option {
	return func(p *Provisioner) {
		if n >= 0 {
			p.samples = n
		}
	}
}

// WithDatabase names the database in reports.
func WithDatabase(name string) Option {
	return func(p *Provisioner) { p.database = name }
}

// New returns a Provisioner for the Core() indexes on store.
func New(store Store, opts ...Option) *Provisioner {
	p := &Provisioner{
		store:   store,
		specs:   Core(),
		logger:  zap.NewNop(),
		samples: defaultDuplicateSamples,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Specs returns the indexes managed by p.
func (p *Provisioner) Specs() []Spec {
	return p.specs
}

// Ensure creates every missing index. Indexes that already exist with the
// same definition are left alone. Failures of one index do not stop the
// others, except a ConnectionError, which aborts the run.
//
// The returned error combines all failures; the report is returned even
// when err is non-nil.
func (p *Provisioner) Ensure(ctx context.Context) (*Report, error) {
	return p.run(ctx, p.ensureOne)
}

// Verify classifies every index as present, missing or conflicting without
// changing anything.
func (p *Provisioner) Verify(ctx context.Context) (*Report, error) {
	return p.run(ctx, p.verifyOne)
}

// CollectionIndexes lists what exists on one collection.
type CollectionIndexes struct {
	Collection string
	Indexes    []IndexInfo
}

// Inventory lists every index currently on the managed collections.
func (p *Provisioner) Inventory(ctx context.Context) ([]CollectionIndexes, error) {
	if err := p.store.Ping(ctx); err != nil {
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	var out []CollectionIndexes
	for _, c := range Collections(p.specs) {
		infos, err := p.store.ListIndexes(ctx, c)
		if err != nil {
			if mongodb.IsConnectivity(err) {
				return nil, &ConnectionError{Op: "list indexes", Collection: c, Err: err}
			}
			return nil, err
		}
		out = append(out, CollectionIndexes{Collection: c, Indexes: infos})
	}
	return out, nil
}

// Duplicates reports duplicate key groups for every unique index managed by p.
func (p *Provisioner) Duplicates(ctx context.Context, limit int) (map[string][]Duplicate, error) {
	if err := p.store.Ping(ctx); err != nil {
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	out := make(map[string][]Duplicate)
	for _, s := range p.specs {
		if !s.Unique {
			continue
		}
		dups, err := p.store.FindDuplicates(ctx, s, limit)
		if err != nil {
			if mongodb.IsConnectivity(err) {
				return nil, &ConnectionError{Op: "find duplicates", Collection: s.Collection, Err: err}
			}
			return nil, &IndexError{Spec: s, Op: "find duplicates for", Err: err}
		}
		out[s.Name] = dups
	}
	return out, nil
}

// CheckPlans explains every shape and reports which index each one uses.
func (p *Provisioner) CheckPlans(ctx context.Context, shapes []QueryShape) ([]PlanCheck, error) {
	if err := p.store.Ping(ctx); err != nil {
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	checks := make([]PlanCheck, 0, len(shapes))
	for _, shape := range shapes {
		c, err := Explain(ctx, p.store, shape)
		if err != nil {
			if mongodb.IsConnectivity(err) {
				return checks, &ConnectionError{Op: "explain", Collection: shape.Collection, Err: err}
			}
			return checks, err
		}
		p.logger.Debug("query plan",
			zap.String("shape", c.Shape), zap.Strings("used", c.Used), zap.Bool("ok", c.OK))
		checks = append(checks, c)
	}
	return checks, nil
}

type stepFunc func(ctx context.Context, s Spec) Outcome

func (p *Provisioner) run(ctx context.Context, step stepFunc) (*Report, error) {
	rep := &Report{Database: p.database, Started: time.Now()}
	defer func() { rep.Duration = time.Since(rep.Started) }()

	if err := p.store.Ping(ctx); err != nil {
		return rep, &ConnectionError{Op: "ping", Err: err}
	}

	rep.Outcomes = make([]Outcome, len(p.specs))
	for i, s := range p.specs {
		rep.Outcomes[i] = Outcome{Spec: s, Status: StatusSkipped}
	}

	do := func(ctx context.Context, i int) error {
		if ctx.Err() != nil {
			return nil
		}
		rep.Outcomes[i] = step(ctx, p.specs[i])
		if errors.Is(rep.Outcomes[i].Err, ErrConnection) {
			return rep.Outcomes[i].Err
		}
		return nil
	}

	var abort error
	if p.concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i := range p.specs {
			g.Go(func() error { return do(gctx, i) })
		}
		abort = g.Wait()
	} else {
		for i := range p.specs {
			if abort = do(ctx, i); abort != nil {
				break
			}
		}
	}

	if abort != nil {
		// abort is also recorded in its outcome
		return rep, rep.Err()
	}
	if err := ctx.Err(); err != nil {
		return rep, multierr.Append(err, rep.Err())
	}
	return rep, rep.Err()
}

func (p *Provisioner) ensureOne(ctx context.Context, s Spec) Outcome {
	start := time.Now()
	log := logging.Index(p.logger, s.Collection, s.Name)
	done := func(st Status, err error) Outcome {
		if errors.Is(err, context.Canceled) {
			st, err = StatusSkipped, nil
		}
		o := Outcome{Spec: s, Status: st, Duration: time.Since(start), Err: err}
		switch {
		case st == StatusSkipped:
			log.Info("index skipped, run cancelled")
		case err != nil:
			log.Error("index not ensured", zap.String("status", string(st)), zap.Error(err))
		default:
			log.Info("index ensured", zap.String("status", string(st)), zap.Duration("duration", o.Duration))
		}
		return o
	}

	existing, err := p.store.ListIndexes(ctx, s.Collection)
	if err != nil {
		return done(StatusFailed, p.wrap(s, "list indexes for", err))
	}

	switch d, ex := classify(s, existing); d {
	case decisionPresent:
		return done(StatusPresent, nil)
	case decisionNameConflict:
		return done(StatusConflict, &NameConflictError{Spec: s, Existing: *ex})
	case decisionKeyConflict:
		return done(StatusConflict, &KeyConflictError{Spec: s, Existing: *ex})
	}

	log.Debug("creating index", zap.String("keys", s.KeyPattern()), zap.Bool("unique", s.Unique))
	if _, err := p.store.CreateIndex(ctx, s); err != nil {
		switch {
		case s.Unique && mongodb.IsDup(err):
			return done(StatusFailed, p.constraintViolation(ctx, s, err))
		case mongodb.IsIndexConflict(err):
			// Another run may have created it between list and create.
			return done(p.recheck(ctx, s, err))
		default:
			return done(StatusFailed, p.wrap(s, "create", err))
		}
	}
	return done(StatusCreated, nil)
}

func (p *Provisioner) verifyOne(ctx context.Context, s Spec) Outcome {
	start := time.Now()
	existing, err := p.store.ListIndexes(ctx, s.Collection)
	o := Outcome{Spec: s}
	if err != nil {
		o.Status, o.Err = StatusFailed, p.wrap(s, "list indexes for", err)
	} else {
		switch d, ex := classify(s, existing); d {
		case decisionPresent:
			o.Status = StatusPresent
		case decisionNameConflict:
			o.Status, o.Err = StatusConflict, &NameConflictError{Spec: s, Existing: *ex}
		case decisionKeyConflict:
			o.Status, o.Err = StatusConflict, &KeyConflictError{Spec: s, Existing: *ex}
		default:
			o.Status, o.Err = StatusMissing, &MissingError{Spec: s}
		}
	}
	if errors.Is(o.Err, context.Canceled) {
		o.Status, o.Err = StatusSkipped, nil
	}
	o.Duration = time.Since(start)
	logging.Index(p.logger, s.Collection, s.Name).Info("index verified", zap.String("status", string(o.Status)))
	return o
}

func (p *Provisioner) constraintViolation(ctx context.Context, s Spec, cause error) error {
	cv := &ConstraintViolationError{Spec: s, Err: cause}
	if p.samples == 0 {
		return cv
	}
	dups, err := p.store.FindDuplicates(ctx, s, p.samples)
	if err != nil {
		p.logger.Warn("duplicate lookup failed",
			zap.String("collection", s.Collection), zap.String("index", s.Name), zap.Error(err))
		return cv
	}
	cv.Duplicates = dups
	return cv
}

func (p *Provisioner) recheck(ctx context.Context, s Spec, cause error) (Status, error) {
	existing, err := p.store.ListIndexes(ctx, s.Collection)
	if err != nil {
		return StatusFailed, p.wrap(s, "create", cause)
	}
	switch d, ex := classify(s, existing); d {
	case decisionPresent:
		return StatusPresent, nil
	case decisionNameConflict:
		return StatusConflict, &NameConflictError{Spec: s, Existing: *ex}
	case decisionKeyConflict:
		return StatusConflict, &KeyConflictError{Spec: s, Existing: *ex}
	}
	return StatusFailed, p.wrap(s, "create", cause)
}

func (p *Provisioner) wrap(s Spec, op string, err error) error {
	if mongodb.IsConnectivity(err) {
		return &ConnectionError{Op: op + " " + s.Name, Collection: s.Collection, Err: err}
	}
	return &IndexError{Spec: s, Op: op, Err: err}
}
