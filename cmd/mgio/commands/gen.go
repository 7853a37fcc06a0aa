package commands

import (
	"context"
	"fmt"

	"github.com/mgio/mgio-go/pkg/examples"
)

// GenOptions selects the sample mesh the gen command writes.
type GenOptions struct {
	Sample string
	Cells  int
	Levels int
	Output string
}

// RunGen builds a sample mesh, partitions it and writes it to a directory.
func RunGen(ctx context.Context, env *Env, opts GenOptions) error {
	if opts.Output == "" {
		return fmt.Errorf("output directory required")
	}
	m, err := examples.Sample(opts.Sample, examples.SampleConfig{Cells: opts.Cells, Levels: opts.Levels})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Sample %s:\n%s", opts.Sample, m.Stats())

	parts, err := env.partition(m)
	if err != nil {
		return err
	}
	defer func() {
		m.Dispose()
		for _, p := range parts {
			p.Dispose()
		}
	}()

	man, err := env.save(ctx, parts, opts.Output)
	if err != nil {
		return err
	}
	printManifest(env.Out, man)
	return nil
}
