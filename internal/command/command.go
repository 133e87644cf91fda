package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("command: unknown command")
	ErrBadValue       = errors.New("command: bad value")
	ErrBadArgs        = errors.New("command: wrong number of arguments")
	ErrBadCount       = errors.New("command: bad command count")
)

type Op int

const (
	OpInsert Op = iota + 1
	OpDelete
	OpFind
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpFind:
		return "find"
	default:
		return "unknown"
	}
}

// Command is one parsed input line. Value is unused for OpFind.
type Command struct {
	Op    Op
	Key   string
	Value int32
}

// Index is what a Runner drives. Both the on-disk tree and the in-memory
// index satisfy it.
type Index interface {
	Insert(key string, value int32) (bool, error)
	Find(key string) ([]int32, error)
	Remove(key string, value int32) (bool, error)
	Close() error
}

// Parse reads "insert <key> <value>", "delete <key> <value>" or "find <key>".
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}

	var cmd Command
	switch fields[0] {
	case "insert":
		cmd.Op = OpInsert
	case "delete":
		cmd.Op = OpDelete
	case "find":
		cmd.Op = OpFind
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	want := 3
	if cmd.Op == OpFind {
		want = 2
	}
	if len(fields) != want {
		return Command{}, fmt.Errorf("%w: %s takes %d, got %d", ErrBadArgs, cmd.Op, want-1, len(fields)-1)
	}
	cmd.Key = fields[1]

	if cmd.Op != OpFind {
		v, err := strconv.ParseInt(fields[2], 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		cmd.Value = int32(v)
	}
	return cmd, nil
}
