package pick

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultOdds       = -110
	DefaultFireRating = 3
	MaxFireRating     = 5
)

// Tier tells which upstream hop produced a record.
type Tier string

const (
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
	TierRecovery Tier = "recovery"
	TierDemo     Tier = "demo"
)

// Source is the provenance tag attached to every fetched pick.
type Source struct {
	Sport    string `json:"sport"`
	Endpoint string `json:"endpoint"`
	Tier     Tier   `json:"tier"`
}

// Pick is a single recommended bet on one market for one game.
type Pick struct {
	ID            string     `json:"id"`
	Sport         string     `json:"sport"`
	GameDate      string     `json:"gameDate"`
	GameTime      string     `json:"gameTime,omitempty"`
	AwayTeam      string     `json:"awayTeam"`
	HomeTeam      string     `json:"homeTeam"`
	Segment       string     `json:"segment"`
	PickType      string     `json:"pickType"`
	PickDirection string     `json:"pickDirection,omitempty"`
	PickTeam      string     `json:"pickTeam,omitempty"`
	Line          string     `json:"line,omitempty"`
	Odds          int        `json:"odds"`
	Edge          float64    `json:"edge"`
	FireRating    int        `json:"fireRating"`
	Locked        bool       `json:"locked"`
	LockedAt      *time.Time `json:"lockedAt"`
	LockChangedAt time.Time  `json:"lockChangedAt,omitempty"`
	Source        Source     `json:"source"`
}

func (p Pick) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("pick id is required")
	}
	if strings.TrimSpace(p.Sport) == "" {
		return fmt.Errorf("pick sport is required")
	}
	if len(p.GameDate) < 10 {
		return fmt.Errorf("pick game date must be an ISO date, got %q", p.GameDate)
	}
	switch p.PickType {
	case TypeSpread, TypeMoneyline, TypeTotal:
	default:
		return fmt.Errorf("unknown pick type %q", p.PickType)
	}
	if p.FireRating < 0 || p.FireRating > MaxFireRating {
		return fmt.Errorf("fire rating %d out of range", p.FireRating)
	}
	if p.Locked && p.LockedAt == nil {
		return fmt.Errorf("locked pick %s has no lockedAt", p.ID)
	}
	if !p.Locked && p.LockedAt != nil {
		return fmt.Errorf("unlocked pick %s has lockedAt", p.ID)
	}

	return nil
}

// WithLock returns a copy of p carrying the given lock state.
func (p Pick) WithLock(locked bool, at time.Time) Pick {
	p.Locked = locked
	p.LockChangedAt = at
	if locked {
		ts := at
		p.LockedAt = &ts
	} else {
		p.LockedAt = nil
	}
	return p
}

// Refresh copies the fields a later fetch is allowed to change onto existing.
func Refresh(existing, incoming Pick) Pick {
	existing.Odds = incoming.Odds
	existing.Edge = incoming.Edge
	existing.FireRating = incoming.FireRating
	if incoming.Source.Tier != "" {
		existing.Source = incoming.Source
	}
	if existing.GameTime == "" {
		existing.GameTime = incoming.GameTime
	}
	return existing
}

// LockPatch is the only mutation the remote store accepts for an existing pick.
type LockPatch struct {
	Locked        bool       `json:"locked"`
	LockedAt      *time.Time `json:"lockedAt"`
	LockChangedAt time.Time  `json:"lockChangedAt"`
}

// WithPatch returns a copy of p carrying the patched lock state.
func (p Pick) WithPatch(patch LockPatch) Pick {
	p.Locked = patch.Locked
	p.LockedAt = patch.LockedAt
	p.LockChangedAt = patch.LockChangedAt
	if !p.Locked {
		p.LockedAt = nil
	} else if p.LockedAt == nil {
		ts := p.LockChangedAt
		p.LockedAt = &ts
	}
	return p
}

func PatchOf(p Pick) LockPatch {
	return LockPatch{
		Locked:        p.Locked,
		LockedAt:      p.LockedAt,
		LockChangedAt: p.LockChangedAt,
	}
}

// Snapshot is the last-known-good aggregated list persisted across restarts.
type Snapshot struct {
	Picks     []Pick    `json:"picks"`
	FetchedAt time.Time `json:"fetchedAt"`
}
