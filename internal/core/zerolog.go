package core

import "github.com/rs/zerolog"

// ZerologAdapter bridges a zerolog.Logger to the service Logger interface.
// Args are interpreted as alternating key/value pairs; a trailing odd value
// is logged under the "arg" key.
type ZerologAdapter struct {
	log zerolog.Logger
}

// NewZerologAdapter wraps log for use as a service Logger.
func NewZerologAdapter(log zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{log: log}
}

func (a *ZerologAdapter) Debug(msg string, args ...any) { a.emit(a.log.Debug(), msg, args) }
func (a *ZerologAdapter) Info(msg string, args ...any)  { a.emit(a.log.Info(), msg, args) }
func (a *ZerologAdapter) Warn(msg string, args ...any)  { a.emit(a.log.Warn(), msg, args) }
func (a *ZerologAdapter) Error(msg string, args ...any) { a.emit(a.log.Error(), msg, args) }

func (a *ZerologAdapter) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = "arg"
		}
		ev = field(ev, key, args[i+1])
	}
	if len(args)%2 == 1 {
		ev = field(ev, "arg", args[len(args)-1])
	}
	ev.Msg(msg)
}

// field records error values through AnErr so their message survives;
// Interface would JSON-marshal most error types to an empty object.
func field(ev *zerolog.Event, key string, v any) *zerolog.Event {
	if err, ok := v.(error); ok {
		return ev.AnErr(key, err)
	}
	return ev.Interface(key, v)
}
