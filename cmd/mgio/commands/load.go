package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mgio/mgio-go/pkg/distributed"
)

// ErrInvalidMesh is returned by verify when a loaded partition fails its
// structural checks.
var ErrInvalidMesh = errors.New("invalid mesh")

// RunLoad loads and reconciles every partition of a dump directory and
// prints what each partition holds.
func RunLoad(ctx context.Context, env *Env, path string, skipReconcile bool) error {
	res, err := env.load(ctx, path, skipReconcile)
	if err != nil {
		return err
	}
	defer res.Dispose()

	fmt.Fprintf(env.Out, "Session %s, %d partition(s)\n", res.Session, len(res.Parts))
	for rank, m := range res.Parts {
		fmt.Fprintf(env.Out, "Rank %d: %s", rank, m.Stats())
		if !skipReconcile {
			printReport(env, rank, res)
		}
	}
	if rank, err := res.Broken(); err != nil {
		return fmt.Errorf("rank %d: %w", rank, err)
	}
	return nil
}

// RunVerify loads a dump directory the way RunLoad does and checks the
// structure of every partition. Digests are checked while the streams open.
func RunVerify(ctx context.Context, env *Env, path string) error {
	res, err := env.load(ctx, path, false)
	if err != nil {
		return err
	}
	defer res.Dispose()

	var failed *multierror.Error
	for rank, m := range res.Parts {
		if err := m.Validate(); err != nil {
			fmt.Fprintf(env.Out, "Rank %d: FAIL\n%v\n", rank, err)
			failed = multierror.Append(failed, fmt.Errorf("rank %d: %w: %w", rank, ErrInvalidMesh, err))
			continue
		}
		if rep := res.Reports[rank]; rep.Broken != nil {
			fmt.Fprintf(env.Out, "Rank %d: FAIL\n%v\n", rank, rep.Broken)
			failed = multierror.Append(failed, fmt.Errorf("rank %d: %w", rank, rep.Broken))
			continue
		}
		fmt.Fprintf(env.Out, "Rank %d: ok (%d nodes, %d elements)\n", rank, m.NodeCount(), m.ElemCount())
	}
	return failed.ErrorOrNil()
}

func printReport(env *Env, rank int, res *distributed.Result) {
	rep := res.Reports[rank]
	fmt.Fprintf(env.Out, "  reconciled %d nodes, %d elements, %d changed\n", rep.Nodes, rep.Elements, rep.Changed)
	if rep.Broken != nil {
		fmt.Fprintf(env.Out, "  broken: %v\n", rep.Broken)
	}
}
