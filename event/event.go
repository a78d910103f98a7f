package event

import (
	"time"
)

// A single inbound chat message, as delivered by the platform adapter. This is the
// raw wire-side shape; rule and detector code works with the derived Context.
type MessageEvent struct {
	ActorID   string
	GuildID   string
	ChannelID string
	Content   string
	Author    ActorMeta
	Timestamp time.Time
}

// information about the message author, always pre-populated and relevant to many
// detectors and rules
type ActorMeta struct {
	Roles      []string
	CreatedAt  time.Time
	TrustScore float64
	// messages per minute over the adapter's recent observation window
	MessageRate float64
}

// Context is the immutable per-evaluation view of one message event. All detector
// and rule evaluation reads from this snapshot; nothing mutates it after
// construction.
type Context struct {
	Content   string
	ActorID   string
	GuildID   string
	ChannelID string
	Roles     []string
	Timestamp time.Time

	// behavior snapshot, taken at evaluation start
	MessageRate float64
	AccountAge  time.Duration
	TrustScore  float64
	// count of prior violations within the escalation window, read from the
	// tracker before detectors run
	RecentViolations int
}

// ActorKey identifies one actor within one guild. Stores key on this struct
// directly rather than a concatenated "actor:guild" string, so IDs containing
// the separator cannot collide.
type ActorKey struct {
	ActorID string
	GuildID string
}

func (c Context) ActorKey() ActorKey {
	return ActorKey{ActorID: c.ActorID, GuildID: c.GuildID}
}

// NewContext derives an evaluation Context from a message event. The violation
// snapshot is filled in by the engine, which owns the escalation tracker.
func NewContext(evt MessageEvent) Context {
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	age := time.Duration(0)
	if !evt.Author.CreatedAt.IsZero() {
		age = ts.Sub(evt.Author.CreatedAt)
	}
	return Context{
		Content:     evt.Content,
		ActorID:     evt.ActorID,
		GuildID:     evt.GuildID,
		ChannelID:   evt.ChannelID,
		Roles:       evt.Author.Roles,
		Timestamp:   ts,
		MessageRate: evt.Author.MessageRate,
		AccountAge:  age,
		TrustScore:  evt.Author.TrustScore,
	}
}
