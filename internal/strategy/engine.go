package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/signalbot/internal/indicator"
	"go.uber.org/zap"
)

// Engine manages and runs strategies
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// Names returns the registered strategy names in sorted order
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify runs the named strategy over every row, in order.
// Rows the strategy cannot evaluate are kept as hold and logged.
func (e *Engine) Classify(ctx context.Context, name string, rows []indicator.Row) ([]ClassifiedRow, error) {
	s, ok := e.Get(name)
	if !ok {
		return nil, fmt.Errorf("strategy %s not found", name)
	}

	result := make([]ClassifiedRow, 0, len(rows))
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		c := s.Classify(row)
		if !c.Valid {
			e.logger.Debug("row classified as hold",
				zap.String("strategy", name),
				zap.Time("time", row.Time),
				zap.String("reason", c.Reason),
			)
		}

		result = append(result, ClassifiedRow{
			Row:    row,
			Signal: c.Action,
			Valid:  c.Valid,
		})
	}

	return result, nil
}
