package notifier

import (
	"context"
	"errors"
	"testing"
)

type mockNotifier struct {
	name       string
	sendCalled int
	lastMsg    string
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Send(ctx context.Context, message string) error {
	m.sendCalled++
	m.lastMsg = message
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	err := r.Register(mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mock)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected 'test', got '%s'", n.Name())
	}

	// Non-existent notifier
	_, err = r.Get("nonexistent")
	if err == nil {
		t.Error("expected error for non-existent notifier")
	}
}

func TestRegistry_GetAll_Sorted(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNotifier{name: "b"})
	r.Register(&mockNotifier{name: "a"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifiers, got %d", len(all))
	}
	if all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("expected sorted order, got %s, %s", all[0].Name(), all[1].Name())
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2"}
	r.Register(mock1)
	r.Register(mock2)

	errs := r.NotifyAll(context.Background(), "🟢 BOT BUY: AAPL at $150.00")

	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if mock1.sendCalled != 1 || mock2.sendCalled != 1 {
		t.Errorf("expected one send each, got %d and %d", mock1.sendCalled, mock2.sendCalled)
	}
	if mock1.lastMsg != "🟢 BOT BUY: AAPL at $150.00" {
		t.Errorf("unexpected message %q", mock1.lastMsg)
	}
}

func TestRegistry_NotifyAll_WithFailure(t *testing.T) {
	r := NewRegistry()

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2", shouldFail: true}
	r.Register(mock1)
	r.Register(mock2)

	errs := r.NotifyAll(context.Background(), "msg")

	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
	if _, ok := errs["n2"]; !ok {
		t.Error("expected error from n2")
	}
	if mock1.sendCalled != 1 {
		t.Error("healthy notifier should still receive the message")
	}
}

func TestStringParam(t *testing.T) {
	params := map[string]any{"s": "abc", "i": 42, "f": float64(-1001234), "b": true}

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"s", "abc", true},
		{"i", "42", true},
		{"f", "-1001234", true},
		{"b", "", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		got, ok := StringParam(params, tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StringParam(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}
