package commands

import (
	"context"
	"fmt"
)

// RunSplit loads a serial dump from input, partitions it and writes the
// partitions to output.
func RunSplit(ctx context.Context, env *Env, input, output string) error {
	if input == output {
		return fmt.Errorf("input and output must differ")
	}
	res, err := env.load(ctx, input, true)
	if err != nil {
		return err
	}
	defer res.Dispose()
	if len(res.Parts) != 1 {
		return fmt.Errorf("%s holds %d partitions, split needs a serial dump", input, len(res.Parts))
	}

	parts, err := env.partition(res.Parts[0])
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range parts {
			p.Dispose()
		}
	}()

	man, err := env.save(ctx, parts, output)
	if err != nil {
		return err
	}
	printManifest(env.Out, man)
	return nil
}
