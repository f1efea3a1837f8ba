// Command hashbuild drives the hashfile builder from the command line:
// build a sealed file from a newline-delimited key/value source, verify an
// already-sealed file's invariants, or archive/restore one to and from
// zstd cold storage.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"ghash/internal/config"
	"ghash/internal/hashfile"
	"ghash/internal/logger"
	"ghash/internal/types"
)

func main() {
	logger.Setup(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "archive":
		err = runArchive(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hashbuild <build|verify|archive|restore> [flags]")
}

// runBuild reads "key\tvalue" lines from --input (or stdin) and builds a
// sealed hashfile at --output.
func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a HuJSON build config file")
	output := fs.String("output", "", "output path (overrides config)")
	expected := fs.Int64("expected", 0, "expected element count (overrides config)")
	input := fs.String("input", "", "input file of tab-separated key/value lines (default stdin)")
	strictSync := fs.Bool("strict-sync", false, "fsync after every record")
	digest := fs.Bool("digest", false, "write a BLAKE3 content-digest sidecar after sealing")
	manifest := fs.Bool("manifest", false, "write a build manifest sidecar")
	if err := fs.Parse(args); err != nil {
		return err
	}

	finalCfg, err := resolveBuildConfig(*configPath, *output, *expected, *strictSync, *digest, *manifest)
	if err != nil {
		return err
	}

	// The builder itself makes no atomicity guarantee. Build to a sibling
	// temp path, then publish with a temp-file-plus-rename so a reader
	// never observes a partially sealed file at the final path.
	cfg := finalCfg
	cfg.OutputPath = finalCfg.OutputPath + ".building"

	in := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	b, err := hashfile.New(cfg)
	if err != nil {
		return fmt.Errorf("start build: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var n uint64
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			_ = b.Abort()
			return fmt.Errorf("malformed input line %d: expected \"key\\tvalue\"", n+1)
		}
		if err := b.Add([]byte(key), []byte(value)); err != nil {
			_ = b.Abort()
			return fmt.Errorf("add record %d: %w", n+1, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		_ = b.Abort()
		return fmt.Errorf("read input: %w", err)
	}

	bucketPower := b.BucketPower()
	if err := b.Finish(); err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	sealedAt := time.Now()

	if err := publish(cfg.OutputPath, finalCfg.OutputPath); err != nil {
		return fmt.Errorf("publish sealed file: %w", err)
	}
	logger.Info("sealed %d records to %s", n, finalCfg.OutputPath)

	if finalCfg.Manifest {
		if err := hashfile.WriteManifest(hashfile.Manifest{
			OutputPath:  finalCfg.OutputPath,
			RecordCount: n,
			BucketPower: bucketPower,
			SealedAt:    sealedAt,
		}); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	if finalCfg.Digest {
		sum, err := hashfile.WriteDigest(finalCfg.OutputPath)
		if err != nil {
			return fmt.Errorf("write digest: %w", err)
		}
		logger.Info("digest %x", sum)
	}

	return nil
}

// publish atomically moves the sealed file built at tempPath into its
// final location, via a temp-file-plus-rename within the target
// directory so a crash never leaves a half-written file at finalPath.
func publish(tempPath, finalPath string) error {
	f, err := os.Open(tempPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := atomic.WriteFile(finalPath, f); err != nil {
		return err
	}
	return os.Remove(tempPath)
}

func resolveBuildConfig(configPath, output string, expected int64, strictSync, digest, manifest bool) (types.BuildConfig, error) {
	cfg := types.BuildConfig{Sync: types.SyncAsync}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return types.BuildConfig{}, err
		}
		cfg = loaded
	}
	if output != "" {
		cfg.OutputPath = output
	}
	if expected != 0 {
		cfg.ExpectedElements = expected
	}
	if strictSync {
		cfg.Sync = types.SyncStrict
	}
	if digest {
		cfg.Digest = true
	}
	if manifest {
		cfg.Manifest = true
	}
	if cfg.OutputPath == "" {
		return types.BuildConfig{}, fmt.Errorf("--output or --config output_path is required")
	}
	return cfg, nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hashbuild verify <path>")
	}
	report, err := hashfile.Verify(fs.Arg(0))
	if err != nil {
		return err
	}
	logger.Info("ok: version=%d records=%d bucketPower=%d buckets=%d",
		report.Version, report.RecordCount, report.BucketPower, report.BucketCount)
	return nil
}

func runArchive(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hashbuild archive <path>")
	}
	if err := hashfile.WriteArchive(fs.Arg(0)); err != nil {
		return err
	}
	logger.Info("archived %s to %s.zst", fs.Arg(0), fs.Arg(0))
	return nil
}

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hashbuild restore <path>")
	}
	if err := hashfile.RestoreArchive(fs.Arg(0)); err != nil {
		return err
	}
	logger.Info("restored %s from %s.zst", fs.Arg(0), fs.Arg(0))
	return nil
}
