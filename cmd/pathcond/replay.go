package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benbjohnson/pathcond"
	"github.com/benbjohnson/pathcond/z3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	solve bool
	debug bool
}

func newReplayCmd() *cobra.Command {
	o := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay [flags] SNAPSHOT...",
		Short: "Restores snapshots and prints their constraints",
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

	cmd.Flags().BoolVar(&o.solve, "solve", false, "report feasibility of each snapshot with Z3")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "use debug log level")

	return cmd
}

func (o *replayOptions) run(ctx context.Context, logger *logrus.Logger, w io.Writer, filenames []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var solver *z3.Solver
	if o.solve {
		solver = z3.NewSolver()
		solver.Logger = logger
		defer solver.Close()
	}

	// Snapshots restored in one arena share their common subexpressions.
	a := pathcond.NewArena()
	for _, filename := range filenames {
		c, err := restoreFile(a, filename)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		printConstraints(w, name, c)

		if solver != nil {
			feasible, err := pathcond.Feasible(ctx, solver, c)
			if err != nil {
				return errors.Wrapf(err, "%s: feasibility", filename)
			}
			fmt.Fprintf(w, "  feasible: %v\n", feasible)
		}
		logger.WithFields(logrus.Fields{"path": name, "size": c.Len()}).Debug("restored")
	}
	return nil
}

func restoreFile(a *pathcond.Arena, filename string) (*pathcond.Constraints, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := pathcond.ReadSnapshot(f)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	c, err := pathcond.Restore(a, snap)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return c, nil
}
