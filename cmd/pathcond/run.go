package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/pathcond"
	"github.com/benbjohnson/pathcond/z3"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	solve       bool
	snapshotDir string
	metricsPath string
	timeout     time.Duration
	debug       bool
}

func newRunCmd() *cobra.Command {
	o := runOptions{}

	cmd := &cobra.Command{
		Use:   "run [flags] SCRIPT...",
		Short: "Runs path scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			if o.debug {
				logger.SetLevel(logrus.DebugLevel)
			}
			return o.run(cmd.Context(), logger, cmd.OutOrStdout(), args)
		},
	}

	cmd.Flags().BoolVar(&o.solve, "solve", false, "answer check steps with Z3 and report feasibility")
	cmd.Flags().StringVar(&o.snapshotDir, "snapshot", "", "directory to write each path's final constraints to")
	cmd.Flags().StringVar(&o.metricsPath, "metrics", "", "file to write arena metrics to in the Prometheus text format")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 10*time.Second, "time limit for each solver query, 0 for none")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "use debug log level")

	return cmd
}

// path holds the state of one script while it runs.
type path struct {
	script      *Script
	arena       *pathcond.Arena
	symbols     *pathcond.Symbols
	constraints *pathcond.Constraints
	solver      pathcond.Solver
	timeout     time.Duration
	logger      logrus.FieldLogger
}

func (o *runOptions) run(ctx context.Context, logger *logrus.Logger, w io.Writer, filenames []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scripts := make([]*Script, len(filenames))
	for i, filename := range filenames {
		s, err := ReadScript(filename)
		if err != nil {
			return err
		}
		scripts[i] = s
	}

	// Names are used as snapshot file names.
	seen := make(map[string]bool)
	for i, s := range scripts {
		if seen[s.Name] {
			return errors.Errorf("%s: duplicate path name: %s", filenames[i], s.Name)
		}
		seen[s.Name] = true
	}

	var solver pathcond.Solver = simplifier{}
	if o.solve {
		s := z3.NewSolver()
		s.Logger = logger
		defer s.Close()
		solver = s
	}

	// Paths share the arena. Each store stays in its own goroutine.
	a := pathcond.NewArena()
	paths := make([]*path, len(scripts))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range scripts {
		g.Go(func() error {
			p := &path{
				script:      s,
				arena:       a,
				symbols:     pathcond.NewSymbols(a),
				constraints: pathcond.NewConstraints(a),
				solver:      solver,
				timeout:     o.timeout,
				logger:      logger.WithField("path", s.Name),
			}
			if err := p.run(ctx, o.solve); err != nil {
				return errors.Wrapf(err, "path %s", s.Name)
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range paths {
		printConstraints(w, p.script.Name, p.constraints)
	}

	if o.snapshotDir != "" {
		if err := os.MkdirAll(o.snapshotDir, 0777); err != nil {
			return err
		}
		for _, p := range paths {
			if err := writeSnapshotFile(filepath.Join(o.snapshotDir, p.script.Name+".yaml"), p.constraints); err != nil {
				return err
			}
		}
	}

	if o.metricsPath != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(pathcond.NewArenaCollector(a))
		if err := prometheus.WriteToTextfile(o.metricsPath, registry); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}

	logger.Debugf("arena stats: %s", spew.Sdump(a.Stats()))
	return nil
}

func (p *path) run(ctx context.Context, solve bool) error {
	if err := p.script.declare(p.symbols); err != nil {
		return err
	}

	for i := range p.script.Steps {
		if err := p.step(ctx, i, &p.script.Steps[i]); err != nil {
			return errors.Wrapf(err, "step %d", i)
		}
	}

	if len(p.script.Inputs) > 0 {
		ok, err := pathcond.NewEvaluator(p.arena, p.script.Inputs).Holds(p.constraints.Exprs()...)
		if err != nil {
			return errors.Wrap(err, "inputs")
		}
		p.logger.WithField("hold", ok).Info("inputs evaluated")
	}

	if solve {
		return p.solve(ctx)
	}
	return nil
}

func (p *path) step(ctx context.Context, i int, step *Step) error {
	op, s, err := step.Op()
	if err != nil {
		return err
	}

	var fact *pathcond.Expr
	if s != "" {
		if fact, err = parseFact(p.arena, p.symbols, s); err != nil {
			return err
		}
	}

	logger := p.logger.WithFields(logrus.Fields{"step": i, "op": op})
	c := p.constraints
	switch op {
	case "add":
		c.AddConstraint(fact)
	case "concolic":
		c.AddConcolicConstraint(fact)
	case "propagate":
		logger = logger.WithField("changed", c.PropagateValidFact(fact))
	case "pop":
		c.PopBack()
	case "erase":
		if n := *step.Erase; n < 0 || n > c.Len() {
			return errors.Errorf("erase: out of range: %d (len=%d)", n, c.Len())
		}
		c.ErasePrefix(*step.Erase)
	case "check":
		v, err := p.query(ctx, fact)
		if err != nil {
			return err
		}
		logger = logger.WithField("validity", v)
	}
	logger.WithField("size", c.Len()).Debug(op)
	return nil
}

// withTimeout bounds ctx by the time limit for a single solver query.
func (p *path) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *path) query(ctx context.Context, fact *pathcond.Expr) (pathcond.Validity, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return pathcond.Query(ctx, p.solver, p.constraints, fact)
}

// solve reports whether the path is feasible and, if so, a model of its symbols.
func (p *path) solve(ctx context.Context) error {
	qctx, cancel := p.withTimeout(ctx)
	feasible, err := pathcond.Feasible(qctx, p.solver, p.constraints)
	cancel()
	if err != nil {
		return errors.Wrap(err, "feasibility")
	}
	p.logger.WithField("feasible", feasible).Info("path solved")
	if !feasible {
		return nil
	}

	model := make(logrus.Fields)
	for _, name := range p.symbols.Names() {
		qctx, cancel := p.withTimeout(ctx)
		v, err := pathcond.Value(qctx, p.solver, p.constraints, p.symbols.Lookup(name))
		cancel()
		if err != nil {
			return errors.Wrapf(err, "value of %s", name)
		}
		model[name] = v
	}
	p.logger.WithFields(model).Info("model")
	return nil
}

func printConstraints(w io.Writer, name string, c *pathcond.Constraints) {
	fmt.Fprintf(w, "path %s: %d facts, %d concolic\n", name, c.Len(), c.ConcolicSize())
	for _, e := range c.All() {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func writeSnapshotFile(filename string, c *pathcond.Constraints) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := pathcond.WriteSnapshot(f, c.Snapshot()); err != nil {
		return err
	}
	return f.Close()
}

// simplifier answers queries from the stored facts alone.
// Anything they do not decide is Unknown.
type simplifier struct{}

func (simplifier) Query(ctx context.Context, constraints []*pathcond.Expr, expr *pathcond.Expr) (pathcond.Validity, error) {
	return pathcond.Unknown, nil
}

func (simplifier) Value(ctx context.Context, constraints []*pathcond.Expr, expr *pathcond.Expr) (uint64, error) {
	return 0, errors.New("no solver configured")
}
