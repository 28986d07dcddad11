package ma_crossover

import (
	"math"
	"testing"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/newthinker/signalbot/internal/strategy"
)

func TestMACrossover_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MACrossover)(nil)
}

func TestMACrossover_Name(t *testing.T) {
	s := New(0)
	if s.Name() != "ma_crossover" {
		t.Errorf("expected 'ma_crossover', got '%s'", s.Name())
	}
}

func TestMACrossover_Classify(t *testing.T) {
	tests := []struct {
		name    string
		short   float64
		long    float64
		want    core.Action
		wantMsg bool
	}{
		{"golden cross", 105, 100, core.ActionBuy, true},
		{"death cross", 95, 100, core.ActionSell, true},
		{"inside spread", 100.5, 100, core.ActionHold, false},
	}

	s := New(0.01)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Classify(indicator.Row{ShortMA: tt.short, LongMA: tt.long})
			if got.Action != tt.want {
				t.Errorf("Classify() = %s, want %s", got.Action, tt.want)
			}
			if (got.Reason != "") != tt.wantMsg {
				t.Errorf("unexpected reason %q", got.Reason)
			}
		})
	}
}

func TestMACrossover_MissingAverages(t *testing.T) {
	s := New(0)
	got := s.Classify(indicator.Row{ShortMA: math.NaN(), LongMA: 100})
	if got.Valid || got.Action != core.ActionHold {
		t.Errorf("expected invalid hold, got %+v", got)
	}
}

func TestMACrossover_Init(t *testing.T) {
	s := New(0)
	if err := s.Init(strategy.Config{Params: map[string]any{"min_spread": 0.02}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.minSpread != 0.02 {
		t.Errorf("minSpread = %v, want 0.02", s.minSpread)
	}
	if err := s.Init(strategy.Config{Params: map[string]any{"min_spread": -1.0}}); err == nil {
		t.Error("expected error for negative spread")
	}
}
