package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/mgio/mgio-go/pkg/codec"
	"github.com/mgio/mgio-go/pkg/persistence"
	"github.com/mgio/mgio-go/pkg/version"
)

// RunInfo prints the manifest of a dump directory and the header of every
// partition stream.
func RunInfo(env *Env, path string) error {
	d := persistence.NewDir(path)
	man, err := d.Manifest()
	if err != nil {
		return err
	}
	printManifest(env.Out, man)

	if f, err := version.LoadFormat(man.Format); err == nil {
		fmt.Fprintf(env.Out, "Format %s: %s\n", f.Version, f.Description)
		fmt.Fprintf(env.Out, "  Sections: %v\n", f.SectionNames())
	} else {
		fmt.Fprintf(env.Out, "Format %s: unknown (%v)\n", man.Format, err)
	}
	fmt.Fprintln(env.Out)

	for rank := range man.Parts {
		hdr, err := readHeader(d, rank)
		if err != nil {
			return fmt.Errorf("rank %d: %w", rank, err)
		}
		fmt.Fprintf(env.Out, "Rank %d/%d (format %s, %dD)\n", hdr.Rank, hdr.Parts, hdr.Version, hdr.Dim)
		fmt.Fprintf(env.Out, "  Coarse:    %d points, %d roots\n", hdr.Points, hdr.Roots)
		fmt.Fprintf(env.Out, "  Mesh:      %d nodes, %d elements, %d levels\n", hdr.Nodes, hdr.Elements, hdr.Levels)
		fmt.Fprintf(env.Out, "  Canonical: %s\n", codec.Canonical(hdr.Canonical))
		fmt.Fprintf(env.Out, "  Idents:    below %d\n", hdr.IdentLimit)
		if hdr.ExternalNeighbors {
			fmt.Fprintln(env.Out, "  External neighbor references")
		}
		if hdr.Boundary {
			fmt.Fprintln(env.Out, "  Boundary points")
		}
		if s := sessionString(hdr.Session); s != man.Session {
			fmt.Fprintf(env.Out, "  Session %s does not match the manifest\n", s)
		}
	}
	return nil
}

func printManifest(w io.Writer, man *persistence.Manifest) {
	fmt.Fprintf(w, "Session: %s\n", man.Session)
	fmt.Fprintf(w, "Saved:   %s\n", man.SavedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Parts:   %d\n", man.Parts)
	for _, f := range man.Files {
		fmt.Fprintf(w, "  %d  %-16s %10d bytes  %s\n", f.Rank, f.Name, f.Size, shortDigest(f.Digest))
	}
}

func shortDigest(d string) string {
	if len(d) > 16 {
		return d[:16]
	}
	return d
}
