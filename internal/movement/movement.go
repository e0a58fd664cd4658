package movement

import (
	"fmt"
	"math"
	"strings"
	"time"

	"werewolf-party/internal/record"
)

const (
	FramesPerSecond = 60
	// PerFrame is the distance a moving player covers in one frame.
	PerFrame      = 3.0
	PlayerSize    = 50.0
	ClickDistance = PlayerSize * 2
)

// FrameLength is the duration of one simulation frame.
const FrameLength = time.Second / FramesPerSecond

// Frames converts elapsed wall time to (fractional) frames.
func Frames(elapsed time.Duration) float64 {
	return float64(elapsed) / float64(FrameLength)
}

type Note string

const (
	NotePlayerMoved     Note = "PLAYER_MOVED"
	NotePlayerRecovered Note = "PLAYER_RECOVERED"
)

// Context tells Advance who is simulating. On a client, PlayerID is the
// locally controlled player and Recovered is set for the first tick after a
// recovery snapshot was loaded.
type Context struct {
	Server    bool
	PlayerID  string
	Recovered bool
}

func ServerContext() Context {
	return Context{Server: true}
}

func ClientContext(playerID string, recovered bool) Context {
	return Context{PlayerID: playerID, Recovered: recovered}
}

// Result is the outcome of one tick for one player. Private results are kept
// locally and never published.
type Result struct {
	Player  record.Player
	Notes   []Note
	Private bool
}

// Advance steps a player's behavioral state by one tick. It panics on a state
// it does not know, so a new variant cannot be added without handling it here.
func Advance(frames float64, p record.Player, ctx Context) Result {
	result := Result{Player: p}
	own := !ctx.Server && ctx.PlayerID == p.ID
	switch p.State.Name {
	case record.StateIdle:
		if own && ctx.Recovered {
			result.Notes = append(result.Notes, NotePlayerRecovered)
		}
	case record.StateMoving:
		switch {
		case ctx.Server:
			result.Private = true
		case own:
			result.Private = true
			result.Notes = append(result.Notes, NotePlayerMoved)
		}
	case record.StateWaiting,
		record.StateSleeping,
		record.StateVote,
		record.StateVoted,
		record.StateDie,
		record.StateRevenge:
	default:
		panic(fmt.Sprintf("movement: unhandled player state %q", p.State.Name))
	}
	return result
}

// Keys holds the movement key flags currently pressed.
type Keys struct {
	ArrowUp    bool
	ArrowDown  bool
	ArrowLeft  bool
	ArrowRight bool
	W          bool
	A          bool
	S          bool
	D          bool
}

// Set records a key transition and reports whether key is a movement key.
func (k *Keys) Set(key string, down bool) bool {
	switch strings.ToUpper(key) {
	case "ARROWUP":
		k.ArrowUp = down
	case "ARROWDOWN":
		k.ArrowDown = down
	case "ARROWLEFT":
		k.ArrowLeft = down
	case "ARROWRIGHT":
		k.ArrowRight = down
	case "W":
		k.W = down
	case "A":
		k.A = down
	case "S":
		k.S = down
	case "D":
		k.D = down
	default:
		return false
	}
	return true
}

func (k Keys) Any() bool {
	return k.ArrowUp || k.ArrowDown || k.ArrowLeft || k.ArrowRight || k.W || k.A || k.S || k.D
}

var (
	dirUp    = record.Vec{X: 0, Y: -1}
	dirDown  = record.Vec{X: 0, Y: 1}
	dirLeft  = record.Vec{X: -1, Y: 0}
	dirRight = record.Vec{X: 1, Y: 0}
)

// Direction sums the unit vectors of every active direction. Opposite keys
// cancel out.
func (k Keys) Direction() record.Vec {
	var dir record.Vec
	if k.ArrowUp || k.W {
		dir = dir.Add(dirUp)
	}
	if k.ArrowDown || k.S {
		dir = dir.Add(dirDown)
	}
	if k.ArrowLeft || k.A {
		dir = dir.Add(dirLeft)
	}
	if k.ArrowRight || k.D {
		dir = dir.Add(dirRight)
	}
	if math.Abs(dir.X) < 0.0001 {
		dir.X = 0
	}
	if math.Abs(dir.Y) < 0.0001 {
		dir.Y = 0
	}
	return dir
}

// Step moves p along the held keys' normalized direction for the given
// frames. p is returned unchanged when no net direction is held.
func Step(frames float64, p record.Player, keys Keys) record.Player {
	dir := keys.Direction()
	if dir.IsZero() {
		return p
	}
	speed := p.Speed
	if speed <= 0 {
		speed = 1
	}
	p.Position = p.Position.Add(dir.Unit().Mul(PerFrame * frames * speed))
	return p
}
