package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tuannm99/novaindex/internal"
	"github.com/tuannm99/novaindex/internal/btree"
	"github.com/tuannm99/novaindex/internal/command"
	"github.com/tuannm99/novaindex/internal/memindex"
)

func openIndex(cfg *internal.NovaIndexConfig) (command.Index, error) {
	switch cfg.Storage.Backend {
	case internal.BackendMemory:
		policy, err := btree.ParseKeyPolicy(cfg.BTree.KeyPolicy)
		if err != nil {
			return nil, err
		}
		idx, err := memindex.Open(cfg.MemoryPath(), policy)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		opts, err := cfg.BTreeOptions()
		if err != nil {
			return nil, err
		}
		tree, err := btree.Open(cfg.IndexPath(), opts)
		if err != nil {
			return nil, err
		}
		return tree, nil
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".novaindex_history"
	}
	return filepath.Join(home, ".novaindex_history")
}

func repl(r *command.Runner, histPath string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "novaindex> ",
		HistoryFile:     histPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Println("type \\help for help")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			// EOF
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "\\q", "quit", "exit":
			return nil
		case "\\help":
			fmt.Println(`commands:
  insert <key> <value>   add a value under key
  delete <key> <value>   remove a value from key
  find <key>             print values under key, or null
  \q | quit | exit       quit`)
			continue
		}

		cmd, err := command.Parse(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if err := r.Exec(cmd); err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if cmd.Op != command.OpFind {
			fmt.Println("OK")
		}
	}
}

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to YAML config (defaults apply when empty)")
		dataDir     = flag.String("data-dir", "", "override storage.dir")
		backend     = flag.String("backend", "", "override storage.backend (btree|memory)")
		interactive = flag.Bool("i", false, "interactive prompt instead of batch input on stdin")
		histPath    = flag.String("history", defaultHistoryPath(), "history file for -i")
	)
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Storage.Dir = *dataDir
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	lvl, _ := cfg.LogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

	idx, err := openIndex(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open index: %v\n", err)
		os.Exit(1)
	}
	slog.Info("novaindex.open", "app", cfg.AppName, "backend", cfg.Storage.Backend, "dir", cfg.Storage.Dir)

	r := &command.Runner{Index: idx, Out: os.Stdout}
	if *interactive {
		err = repl(r, *histPath)
	} else {
		err = r.RunBatch(os.Stdin)
	}

	if cerr := idx.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
