// Inspect a novaindex node file (.idx).
// Usage: go run ./cmd/inspect [-cmd dump|stats|check] <path-to-.idx>
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tuannm99/novaindex/internal/btree"
	"github.com/tuannm99/novaindex/internal/storage"
)

// checkIndexFile rejects files btree.Open would treat as fresh or reject,
// so inspecting never rewrites its input.
func checkIndexFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	size := info.Size()
	if size < storage.HeaderSize {
		return fmt.Errorf("%s: %d bytes is shorter than the %d-byte header", path, size, storage.HeaderSize)
	}
	if (size-storage.HeaderSize)%btree.RecordSize != 0 {
		return fmt.Errorf("%w: %s has %d bytes", storage.ErrTruncatedFile, path, size)
	}
	return nil
}

func run(path, cmd string) error {
	if err := checkIndexFile(path); err != nil {
		return err
	}

	// Open creates a missing data file; use a scratch one instead.
	opts := btree.Options{}
	if _, err := os.Stat(btree.AuxPathFor(path)); errors.Is(err, os.ErrNotExist) {
		dir, err := os.MkdirTemp("", "novaindex-inspect-")
		if err != nil {
			return err
		}
		defer func() { _ = os.RemoveAll(dir) }()
		opts.AuxPath = filepath.Join(dir, "scratch.dat")
	}

	tree, err := btree.Open(path, opts)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	switch cmd {
	case "dump":
		return tree.Dump(os.Stdout)
	case "stats":
		st, err := tree.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("root pos:         %d\n", st.Root)
		fmt.Printf("height:           %d\n", st.Height)
		fmt.Printf("internal nodes:   %d\n", st.InternalNodes)
		fmt.Printf("leaves:           %d\n", st.Leaves)
		fmt.Printf("entries:          %d\n", st.Entries)
		fmt.Printf("underfull leaves: %d\n", st.UnderfullLeaves)
		fmt.Printf("records in file:  %d\n", st.Records)
		return nil
	case "check":
		if err := tree.Check(); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	default:
		return fmt.Errorf("unknown -cmd %q", cmd)
	}
}

func main() {
	cmd := flag.String("cmd", "dump", "dump | stats | check")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-cmd dump|stats|check] <index.idx>\n", os.Args[0])
		os.Exit(1)
	}
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if err := run(flag.Arg(0), *cmd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
