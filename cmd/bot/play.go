package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"werewolf-party/internal/client"
	"werewolf-party/internal/logging"
	"werewolf-party/internal/record"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type playOptions struct {
	server   string
	room     string
	name     string
	count    int
	ready    bool
	greeting string
	classic  bool
	duration time.Duration
}

var wanderKeys = []string{"W", "A", "S", "D"}

func playCmd() *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a room with one or more bots that wander, ready up and vote",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.room, "room", "", "room id to join")
	cmd.Flags().StringVar(&opts.name, "name", "bot", "player name prefix")
	cmd.Flags().IntVar(&opts.count, "count", 1, "number of bots to run")
	cmd.Flags().BoolVar(&opts.ready, "ready", true, "mark bots ready in the lobby")
	cmd.Flags().StringVar(&opts.greeting, "say", "", "chat message each bot posts once after joining")
	cmd.Flags().BoolVar(&opts.classic, "classic", false, "as admin, switch the lobby back to the classic roster")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long; 0 runs until interrupted")
	_ = cmd.MarkFlagRequired("room")
	return cmd
}

func runPlay(parent context.Context, opts playOptions) error {
	if opts.count < 1 {
		return errors.New("count must be at least 1")
	}
	logging.Init()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	endpoint, err := client.RoomURL(opts.server, opts.room)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errs := make(chan error, opts.count)
	for i := range opts.count {
		name := opts.name
		if opts.count > 1 {
			name = fmt.Sprintf("%s-%d", opts.name, i+1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- playOne(ctx, endpoint, name, opts)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return nil
}

func playOne(ctx context.Context, endpoint, name string, opts playOptions) error {
	session, err := client.Dial(ctx, endpoint, uuid.NewString(), name)
	if err != nil {
		return err
	}
	defer session.Close()

	log := logging.Log.WithField("bot", name)
	log.Info("joined room")
	b := newBot(rand.New(rand.NewSource(time.Now().UnixNano())), opts, log)
	return session.Run(ctx, b.tick)
}

// bot drives a controller from the session loop. Every field is touched
// only from that loop.
type bot struct {
	rand     *rand.Rand
	ready    bool
	greeting string
	classic  bool
	log      *logrus.Entry

	ticks   int
	held    string
	greeted bool
	heard   map[string]bool
	next    record.GameAction
}

func newBot(rng *rand.Rand, opts playOptions, log *logrus.Entry) *bot {
	return &bot{
		rand:     rng,
		ready:    opts.ready,
		greeting: opts.greeting,
		classic:  opts.classic,
		log:      log,
		heard:    map[string]bool{},
	}
}

func (b *bot) tick(c *client.Controller) {
	if !c.Ready() {
		return
	}
	b.ticks++
	me, ok := c.Player()
	if !ok {
		return
	}
	params, ok := c.Params()
	if !ok {
		return
	}
	b.listen(c)

	if b.greeting != "" && !b.greeted {
		b.greeted = true
		c.Say(b.greeting, record.ChatAll)
	}
	if b.classic && me.IsAdmin && params.Page == record.PageLobby && params.RolesSchema != record.SchemaClassic {
		c.UpdateParams(func(p record.Params) record.Params {
			p.RolesSchema = record.SchemaClassic
			return p
		})
		return
	}

	if b.ready && params.Page != record.PageGame && !me.IsReady {
		c.ToggleReady()
		return
	}

	switch me.State.Name {
	case record.StateVote:
		if !hasVoted(c, me.ID) {
			if target, ok := b.pick(c, me.ID); ok {
				c.Vote(target)
			}
		}
	case record.StateIdle, record.StateMoving:
		if me.HasRole(record.RoleWerewolf) && !params.IsDay && !hasTarget(c, record.RoleWerewolf) {
			if target, ok := b.pick(c, me.ID); ok {
				c.TargetToKill(target)
			}
		}
		b.wander(c)
	}
}

// listen logs server announcements and the next scheduled game action.
func (b *bot) listen(c *client.Controller) {
	for _, m := range c.Messages() {
		if b.heard[m.ID] {
			continue
		}
		b.heard[m.ID] = true
		if m.Sender == record.SenderServer {
			b.log.WithField("category", m.Category).Info(m.Content)
		}
	}
	if timed, ok := c.TimedAction(); ok && timed.Action != b.next {
		b.next = timed.Action
		b.log.WithField("countdown_ms", timed.Countdown).Debugf("next action %s", timed.Action)
	}
}

// wander holds one movement key for a second at a time.
func (b *bot) wander(c *client.Controller) {
	if b.ticks%20 != 0 {
		return
	}
	if b.held != "" {
		c.KeyUp(b.held)
		b.held = ""
	}
	if b.rand.Intn(3) == 0 {
		return
	}
	b.held = wanderKeys[b.rand.Intn(len(wanderKeys))]
	c.KeyDown(b.held)
}

func (b *bot) pick(c *client.Controller, self string) (string, bool) {
	candidates := make([]string, 0)
	for _, p := range c.Players() {
		if p.ID != self && p.Alive() {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[b.rand.Intn(len(candidates))], true
}

func hasVoted(c *client.Controller, self string) bool {
	for _, v := range c.Votes() {
		if v.By == self {
			return true
		}
	}
	return false
}

func hasTarget(c *client.Controller, role record.RoleName) bool {
	for _, p := range c.Players() {
		if p.TargetedBy(role) {
			return true
		}
	}
	return false
}
