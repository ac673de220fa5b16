package state

import (
	"errors"
	"testing"
	"time"

	"github.com/ofs-tools/ofs-client/internal/events"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"//", "/"},
		{"docs", "/docs"},
		{"/docs/", "/docs"},
		{"/a//b", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/../b", "/b"},
		{"/..", "/"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/docs", "/"},
		{"/docs/reports", "/docs"},
		{"/a/b/c/", "/a/b"},
	}
	for _, tt := range tests {
		if got := Parent(tt.in); got != tt.want {
			t.Errorf("Parent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNavigatorStartsAtRoot(t *testing.T) {
	n := NewNavigator(nil)
	if n.Path() != "/" || !n.IsRoot() {
		t.Errorf("expected /, got %q", n.Path())
	}
}

func TestNavigatorUpAtRootIsIdempotent(t *testing.T) {
	n := NewNavigator(nil)
	for i := 0; i < 3; i++ {
		p, moved := n.Up()
		if p != "/" || moved {
			t.Fatalf("Up() at root = (%q, %v), want (/, false)", p, moved)
		}
	}
}

func TestNavigatorEnterThenUp(t *testing.T) {
	n := NewNavigator(nil)

	p, err := n.Enter("docs")
	if err != nil {
		t.Fatal(err)
	}
	if p != "/docs" {
		t.Errorf("Enter(docs) = %q", p)
	}

	p, err = n.Enter("reports")
	if err != nil {
		t.Fatal(err)
	}
	if p != "/docs/reports" {
		t.Errorf("Enter(reports) = %q", p)
	}

	if p, moved := n.Up(); p != "/docs" || !moved {
		t.Errorf("Up() = (%q, %v)", p, moved)
	}
	if p, _ := n.Up(); p != "/" {
		t.Errorf("Up() = %q, want /", p)
	}
}

func TestNavigatorEnterRejectsBadNames(t *testing.T) {
	n := NewNavigator(nil)
	for _, name := range []string{"", ".", "..", "a/b", "/abs"} {
		if _, err := n.Enter(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Enter(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
	if n.Path() != "/" {
		t.Errorf("rejected Enter must not move, at %q", n.Path())
	}
}

func TestNavigatorSetAndReset(t *testing.T) {
	n := NewNavigator(nil)
	if got := n.Set("/x//y/"); got != "/x/y" {
		t.Errorf("Set() = %q", got)
	}
	if got := n.Child("z"); got != "/x/y/z" {
		t.Errorf("Child() = %q", got)
	}
	n.Reset()
	if n.Path() != "/" {
		t.Errorf("Reset() left %q", n.Path())
	}
}

func TestNavigatorPublishesPathChanged(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(EventPathChanged)

	n := NewNavigator(bus)
	n.Up() // no-op, no event
	n.Enter("docs")

	select {
	case e := <-ch:
		pc, ok := e.(*PathChangedEvent)
		if !ok {
			t.Fatalf("unexpected event %T", e)
		}
		if pc.From != "/" || pc.To != "/docs" {
			t.Errorf("event = %+v", pc)
		}
	case <-time.After(time.Second):
		t.Fatal("expected path_changed event")
	}

	select {
	case e := <-ch:
		t.Errorf("unexpected extra event %+v", e)
	default:
	}
}
