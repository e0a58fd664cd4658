package movement

import (
	"math"
	"testing"
	"time"

	"werewolf-party/internal/record"
)

func TestFramesAtSixtyPerSecond(t *testing.T) {
	if got := Frames(time.Second); math.Abs(got-60) > 1e-9 {
		t.Fatalf("expected 60 frames per second, got %v", got)
	}
	if got := Frames(50 * time.Millisecond); math.Abs(got-3) > 1e-9 {
		t.Fatalf("expected 3 frames per tick, got %v", got)
	}
}

func TestStepDiagonalIsNormalized(t *testing.T) {
	var keys Keys
	keys.Set("ArrowUp", true)
	keys.Set("d", true)

	p := record.NewPlayer("p1", "Ada", record.Vec{})
	moved := Step(1, p, keys)
	if got := moved.Position.Len(); math.Abs(got-PerFrame) > 1e-9 {
		t.Fatalf("expected distance %v, got %v", PerFrame, got)
	}
	if moved.Position.X <= 0 || moved.Position.Y >= 0 {
		t.Fatalf("expected up-right movement, got %#v", moved.Position)
	}
}

func TestStepOppositeKeysCancel(t *testing.T) {
	var keys Keys
	keys.Set("ArrowLeft", true)
	keys.Set("ArrowRight", true)
	if keys.Direction() != (record.Vec{}) {
		t.Fatalf("expected zero direction, got %#v", keys.Direction())
	}

	p := record.NewPlayer("p1", "Ada", record.Vec{X: 10, Y: 10})
	if got := Step(5, p, keys); got.Position != p.Position {
		t.Fatalf("expected no movement, got %#v", got.Position)
	}
}

func TestSetIgnoresOtherKeys(t *testing.T) {
	var keys Keys
	if keys.Set("Enter", true) {
		t.Fatalf("expected Enter to be ignored")
	}
	if keys.Any() {
		t.Fatalf("expected no keys held")
	}
	if !keys.Set("w", true) || !keys.Any() {
		t.Fatalf("expected w to register")
	}
}

func TestAdvanceMovingOnServerIsPrivate(t *testing.T) {
	p := record.NewPlayer("p1", "Ada", record.Vec{})
	p.State = record.Moving()

	result := Advance(3, p, ServerContext())
	if !result.Private {
		t.Fatalf("expected private result on server")
	}
	if len(result.Notes) != 0 {
		t.Fatalf("expected no notes on server, got %v", result.Notes)
	}
}

func TestAdvanceMovingOwnPlayerNotesMove(t *testing.T) {
	p := record.NewPlayer("p1", "Ada", record.Vec{})
	p.State = record.Moving()

	result := Advance(3, p, ClientContext("p1", false))
	if !result.Private || len(result.Notes) != 1 || result.Notes[0] != NotePlayerMoved {
		t.Fatalf("expected private moved note, got %#v", result)
	}

	other := Advance(3, p, ClientContext("p2", false))
	if other.Private || len(other.Notes) != 0 {
		t.Fatalf("expected remote player untouched, got %#v", other)
	}
}

func TestAdvanceIdleAfterRecovery(t *testing.T) {
	p := record.NewPlayer("p1", "Ada", record.Vec{})

	result := Advance(1, p, ClientContext("p1", true))
	if len(result.Notes) != 1 || result.Notes[0] != NotePlayerRecovered {
		t.Fatalf("expected recovered note, got %v", result.Notes)
	}
	if got := Advance(1, p, ClientContext("p1", false)); len(got.Notes) != 0 {
		t.Fatalf("expected no note without recovery, got %v", got.Notes)
	}
}

func TestAdvanceUnknownStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unknown state")
		}
	}()
	p := record.NewPlayer("p1", "Ada", record.Vec{})
	p.State = record.PlayerState{Name: "dancing"}
	Advance(1, p, ServerContext())
}
