package room

import (
	"time"

	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

// addTimedAction schedules action after countdown milliseconds. A room holds
// at most one pending action, so the call is a no-op when one exists.
func (r *Room) addTimedAction(countdown int64, action record.GameAction) bool {
	if existing, ok := store.First[record.TimedAction](r.store); ok {
		r.log.WithField("pending", existing.Action.String()).
			WithField("ignored", action.String()).
			Debug("timed action already pending")
		return false
	}
	r.armAlarm()
	r.add(record.NewTimedAction(countdown, action))
	return true
}

func (r *Room) cancelTimedActions() {
	for _, timed := range store.All[record.TimedAction](r.store) {
		r.remove(timed)
	}
}

func (r *Room) armAlarm() {
	r.alarmAt = r.now().Add(r.timings.AlarmInterval)
	r.alarm.Set(r.alarmAt)
}

// AlarmAt is the instant the alarm is armed for, zero when idle.
func (r *Room) AlarmAt() time.Time {
	return r.alarmAt
}

// OnAlarm counts the pending timed action down by one alarm interval, or
// fires it once the countdown is exhausted. It returns the action fired, if
// any. The alarm is re-armed after every call that found a pending action.
func (r *Room) OnAlarm() (record.GameAction, bool) {
	r.alarmAt = time.Time{}
	timed, ok := store.First[record.TimedAction](r.store)
	if !ok {
		return record.GameAction{}, false
	}
	defer r.armAlarm()

	if timed.Countdown > 0 {
		next := timed
		next.Countdown -= r.timings.AlarmInterval.Milliseconds()
		r.replace(timed, next)
		return record.GameAction{}, false
	}

	action := timed.Action
	r.updateParams(func(p record.Params) record.Params {
		current := action
		p.ActualGameAction = &current
		return p
	})
	r.remove(timed)
	r.log.WithField("action", action.String()).Info("phase action")
	r.apply(action)
	return action, true
}
