package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add   func(AddArgs) (Result, error)
	Done  func(DoneArgs) (Result, error)
	Drop  func(DropArgs) (Result, error)
	Redo  func(RedoArgs) (Result, error)
	Stats func(StatsArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "add handler not configured"}
		}
		return handlers.Add(*cmd.Add)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "done handler not configured"}
		}
		return handlers.Done(*cmd.Done)
	case TypeDrop:
		if handlers.Drop == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "drop handler not configured"}
		}
		return handlers.Drop(*cmd.Drop)
	case TypeRedo:
		if handlers.Redo == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "redo handler not configured"}
		}
		return handlers.Redo(*cmd.Redo)
	case TypeStats:
		if handlers.Stats == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "stats handler not configured"}
		}
		return handlers.Stats(*cmd.Stats)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
