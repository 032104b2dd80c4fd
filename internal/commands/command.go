package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeAdd   Type = "add"
	TypeDone  Type = "done"
	TypeDrop  Type = "drop"
	TypeRedo  Type = "redo"
	TypeStats Type = "stats"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs carries the title and an optional "by:HH:MM" deadline override.
// By stays a raw clock string; only the caller knows today's date.
type AddArgs struct {
	Title string
	By    string
}

type DoneArgs struct {
	Target string
}

type DropArgs struct {
	Target string
}

type RedoArgs struct {
	Target string
}

type StatsArgs struct {
	Days int
}

type Command struct {
	Type  Type
	Raw   string
	Add   *AddArgs
	Done  *DoneArgs
	Drop  *DropArgs
	Redo  *RedoArgs
	Stats *StatsArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone:
		return parseTarget(input, TypeDone, args)
	case TypeDrop:
		return parseTarget(input, TypeDrop, args)
	case TypeRedo:
		return parseTarget(input, TypeRedo, args)
	case TypeStats:
		return parseStats(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	by := ""
	titleParts := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(strings.ToLower(arg), "by:") {
			by = strings.TrimSpace(strings.TrimPrefix(arg, "by:"))
			continue
		}
		titleParts = append(titleParts, arg)
	}
	title := strings.TrimSpace(strings.Join(titleParts, " "))
	if title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	if by != "" && !validClock(by) {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("by: wants HH:MM, got %q", by)}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Title: title, By: by}}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a task", typ)}
	}
	target := strings.ToLower(args[0])
	cmd := Command{Type: typ, Raw: raw}
	switch typ {
	case TypeDone:
		cmd.Done = &DoneArgs{Target: target}
	case TypeDrop:
		cmd.Drop = &DropArgs{Target: target}
	case TypeRedo:
		cmd.Redo = &RedoArgs{Target: target}
	}
	return cmd, nil
}

func parseStats(raw string, args []string) (Command, error) {
	days := 7
	if len(args) > 0 {
		parsed, ok := parseDays(args[0])
		if !ok {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("stats wants a range like 7d, got %q", args[0])}
		}
		days = parsed
	}
	return Command{Type: TypeStats, Raw: raw, Stats: &StatsArgs{Days: days}}, nil
}

func parseDays(arg string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(arg))
	s = strings.TrimSuffix(s, "d")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func validClock(s string) bool {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return false
	}
	return true
}
