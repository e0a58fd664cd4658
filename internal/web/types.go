package web

type RoomPlayer struct {
	Name     string
	State    string
	Role     string
	Alive    bool
	Ready    bool
	Admin    bool
	Position string
}

type RoomMessage struct {
	Sender   string
	Category string
	Content  string
}

// RoomView is the read-only state rendered by the inspector page.
type RoomView struct {
	RoomID        string
	Clock         int64
	Page          string
	IsDay         bool
	Winner        string
	ActualAction  string
	PendingAction string
	Countdown     int64
	Roles         []string
	Players       []RoomPlayer
	Messages      []RoomMessage
}
