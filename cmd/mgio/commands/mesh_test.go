package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgio/mgio-go/pkg/codec"
	"github.com/mgio/mgio-go/pkg/config"
	"github.com/mgio/mgio-go/pkg/persistence"
)

func testEnv(t *testing.T, apply func(cfg *config.Config)) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	var out bytes.Buffer
	return &Env{Config: cfg, Out: &out}, &out
}

func gen(t *testing.T, dir string, parts int, opts GenOptions, apply func(cfg *config.Config)) {
	t.Helper()
	env, _ := testEnv(t, func(cfg *config.Config) {
		cfg.Partition.Parts = parts
		if apply != nil {
			apply(cfg)
		}
	})
	opts.Output = dir
	if err := RunGen(context.Background(), env, opts); err != nil {
		t.Fatalf("RunGen failed: %v", err)
	}
}

func TestGenInfoVerifyLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	events := filepath.Join(t.TempDir(), "load.mlog")
	gen(t, dir, 2, GenOptions{Sample: "quad", Cells: 2, Levels: 1}, nil)

	t.Run("Info", func(t *testing.T) {
		env, out := testEnv(t, nil)
		if err := RunInfo(env, dir); err != nil {
			t.Fatalf("RunInfo failed: %v", err)
		}
		for _, want := range []string{"Parts:   2", "part-0001.mgio", "Rank 1/2", "External neighbor references", "Canonical: first-visited"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, out.String())
			}
		}
		if strings.Contains(out.String(), "does not match") {
			t.Errorf("session mismatch reported:\n%s", out.String())
		}
	})

	t.Run("Verify", func(t *testing.T) {
		env, out := testEnv(t, nil)
		if err := RunVerify(context.Background(), env, dir); err != nil {
			t.Fatalf("RunVerify failed: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "Rank 0: ok") || !strings.Contains(out.String(), "Rank 1: ok") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("Load", func(t *testing.T) {
		env, out := testEnv(t, func(cfg *config.Config) { cfg.Log.Events = events })
		if err := RunLoad(context.Background(), env, dir, false); err != nil {
			t.Fatalf("RunLoad failed: %v", err)
		}
		if n := strings.Count(out.String(), "reconciled"); n != 2 {
			t.Errorf("expected 2 reports, got %d:\n%s", n, out.String())
		}

		var stats bytes.Buffer
		if err := RunStats(events, &stats); err != nil {
			t.Fatalf("RunStats failed: %v", err)
		}
		if !strings.Contains(stats.String(), "Identities:") {
			t.Errorf("no identity events captured:\n%s", stats.String())
		}
	})

	t.Run("LoadSkipReconcile", func(t *testing.T) {
		env, out := testEnv(t, nil)
		if err := RunLoad(context.Background(), env, dir, true); err != nil {
			t.Fatalf("RunLoad failed: %v", err)
		}
		if strings.Contains(out.String(), "reconciled") {
			t.Errorf("reconciled with skip set:\n%s", out.String())
		}
	})
}

func TestGenLowestGIDLoadsDeferred(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	gen(t, dir, 1, GenOptions{Sample: "closure", Cells: 2, Levels: 1}, func(cfg *config.Config) {
		cfg.Codec.Canonical = "lowest-gid"
	})

	// Strict is configured; the header's policy switches the load to deferred.
	env, out := testEnv(t, nil)
	if err := RunVerify(context.Background(), env, dir); err != nil {
		t.Fatalf("RunVerify failed: %v\n%s", err, out.String())
	}
}

func TestSplit(t *testing.T) {
	serial := filepath.Join(t.TempDir(), "serial")
	split := filepath.Join(t.TempDir(), "split")
	gen(t, serial, 1, GenOptions{Sample: "quad", Cells: 2, Levels: 2}, nil)

	env, _ := testEnv(t, func(cfg *config.Config) {
		cfg.Partition.Parts = 2
		cfg.Partition.Level = 1
	})
	if err := RunSplit(context.Background(), env, serial, split); err != nil {
		t.Fatalf("RunSplit failed: %v", err)
	}

	man, err := persistence.NewDir(split).Manifest()
	if err != nil {
		t.Fatalf("Manifest() failed: %v", err)
	}
	if man.Parts != 2 {
		t.Errorf("Parts = %d, want 2", man.Parts)
	}

	env, out := testEnv(t, nil)
	if err := RunVerify(context.Background(), env, split); err != nil {
		t.Fatalf("RunVerify failed: %v\n%s", err, out.String())
	}

	t.Run("RejectsPartitioned", func(t *testing.T) {
		env, _ := testEnv(t, func(cfg *config.Config) { cfg.Partition.Parts = 3 })
		err := RunSplit(context.Background(), env, split, filepath.Join(t.TempDir(), "again"))
		if err == nil || !strings.Contains(err.Error(), "serial dump") {
			t.Errorf("RunSplit error = %v, want serial dump error", err)
		}
	})

	t.Run("RejectsSameDirectory", func(t *testing.T) {
		env, _ := testEnv(t, nil)
		if err := RunSplit(context.Background(), env, serial, serial); err == nil {
			t.Error("expected error for identical directories")
		}
	})
}

func TestVerifyTampered(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	gen(t, dir, 2, GenOptions{Sample: "tri", Cells: 2, Levels: 1}, nil)

	path := filepath.Join(dir, persistence.PartName(1))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)/2] ^= 0xff
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	env, _ := testEnv(t, nil)
	err = RunVerify(context.Background(), env, dir)
	if !errors.Is(err, persistence.ErrDigestMismatch) || !errors.Is(err, codec.ErrCorruptData) {
		t.Errorf("RunVerify error = %v, want digest mismatch", err)
	}
}

func TestGenErrors(t *testing.T) {
	env, _ := testEnv(t, nil)
	if err := RunGen(context.Background(), env, GenOptions{Sample: "quad"}); err == nil {
		t.Error("expected error without output directory")
	}
	err := RunGen(context.Background(), env, GenOptions{Sample: "pentagon", Output: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "unknown sample") {
		t.Errorf("RunGen error = %v, want unknown sample", err)
	}
}

func TestInfoWithoutManifest(t *testing.T) {
	env, _ := testEnv(t, nil)
	if err := RunInfo(env, t.TempDir()); !errors.Is(err, persistence.ErrNoManifest) {
		t.Errorf("RunInfo error = %v, want ErrNoManifest", err)
	}
}
