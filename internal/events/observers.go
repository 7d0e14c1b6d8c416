package events

import (
	"go.uber.org/zap"
)

// LoggingObserver logs all events.
type LoggingObserver struct {
	name    string
	logger  *zap.Logger
	verbose bool
}

// NewLoggingObserver creates a new observer that logs events. Snapshot
// updates are only logged when verbose is set.
func NewLoggingObserver(logger *zap.Logger, verbose bool) *LoggingObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingObserver{
		name:    "LoggingObserver",
		logger:  logger,
		verbose: verbose,
	}
}

// OnEvent logs the event details.
func (o *LoggingObserver) OnEvent(event Event) error {
	switch data := event.TypedData.(type) {
	case MatchCommittedEvent:
		fields := []zap.Field{
			zap.String("match_id", data.MatchID),
			zap.String("result", data.Result),
			zap.String("deck", data.DeckName),
			zap.String("opponent", data.Opponent),
			zap.Int("events", data.Events),
		}
		if data.Cubes != nil {
			fields = append(fields, zap.Int("cubes", *data.Cubes))
		}
		o.logger.Info("match committed", fields...)
	case MatchSkippedEvent:
		o.logger.Info("match skipped", zap.String("match_id", data.MatchID), zap.String("reason", data.Reason))
	case TrackerErrorEvent:
		o.logger.Warn("tracker error", zap.String("kind", data.Kind), zap.String("error", data.Error))
	case SnapshotUpdatedEvent:
		o.logger.Debug("snapshot updated",
			zap.String("match_id", data.MatchID),
			zap.String("turn", data.Turn),
			zap.Int("events", data.Events),
			zap.Any("remaining", data.Remaining))
	default:
		o.logger.Debug("event", zap.String("type", event.Type))
	}
	return nil
}

// GetName returns the observer's name.
func (o *LoggingObserver) GetName() string {
	return o.name
}

// ShouldHandle returns true for all events, except snapshot updates when
// not verbose.
func (o *LoggingObserver) ShouldHandle(eventType string) bool {
	if eventType == TypeSnapshotUpdated {
		return o.verbose
	}
	return true
}

// FuncObserver adapts a function to the Observer interface.
type FuncObserver struct {
	Name  string
	Types []string // empty handles every type
	Fn    func(Event) error
}

// OnEvent calls Fn.
func (o *FuncObserver) OnEvent(event Event) error {
	return o.Fn(event)
}

// GetName returns the observer's name.
func (o *FuncObserver) GetName() string {
	return o.Name
}

// ShouldHandle filters by Types.
func (o *FuncObserver) ShouldHandle(eventType string) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, t := range o.Types {
		if t == eventType {
			return true
		}
	}
	return false
}
