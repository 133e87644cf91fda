package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tuannm99/novaindex/internal/btree"
)

// Runner applies commands to an Index and prints find results to Out.
type Runner struct {
	Index Index
	Out   io.Writer
}

// RunBatch reads a command count n followed by n command lines. Lines that
// fail to parse or carry a key the index refuses are logged and skipped; a
// refused find prints "null". Any other index error stops the batch.
func (r *Runner) RunBatch(in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var n int
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: %q", ErrBadCount, line)
		}
		n = v
		break
	}

	for i := 0; i < n && sc.Scan(); i++ {
		cmd, err := Parse(sc.Text())
		if err != nil {
			slog.Warn("command.RunBatch.skip", "line", i+1, "err", err)
			continue
		}
		if err := r.Exec(cmd); err != nil {
			if !isKeyError(err) {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			slog.Warn("command.RunBatch.skip", "line", i+1, "op", cmd.Op.String(), "err", err)
			if cmd.Op == OpFind {
				if _, err := fmt.Fprintln(r.Out, FormatValues(nil)); err != nil {
					return err
				}
			}
		}
	}
	return sc.Err()
}

// isKeyError reports a key rejected by the index's key policy.
func isKeyError(err error) bool {
	return errors.Is(err, btree.ErrKeyTooLong) || errors.Is(err, btree.ErrInvalidKey)
}

// Exec applies one command. Only find writes output: its values separated
// by spaces, or "null" when the key has none.
func (r *Runner) Exec(cmd Command) error {
	switch cmd.Op {
	case OpInsert:
		_, err := r.Index.Insert(cmd.Key, cmd.Value)
		return err
	case OpDelete:
		_, err := r.Index.Remove(cmd.Key, cmd.Value)
		return err
	case OpFind:
		vals, err := r.Index.Find(cmd.Key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.Out, FormatValues(vals))
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Op)
	}
}

// FormatValues renders find output.
func FormatValues(vals []int32) string {
	if len(vals) == 0 {
		return "null"
	}
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(int64(v), 10))
	}
	return b.String()
}
