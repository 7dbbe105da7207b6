package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

type pickTableModel struct {
	PublicID       string         `db:"public_id"`
	Sport          string         `db:"sport"`
	GameDate       string         `db:"game_date"`
	GameTime       sql.NullString `db:"game_time"`
	AwayTeam       string         `db:"away_team"`
	HomeTeam       string         `db:"home_team"`
	Segment        string         `db:"segment"`
	PickType       string         `db:"pick_type"`
	PickDirection  sql.NullString `db:"pick_direction"`
	PickTeam       sql.NullString `db:"pick_team"`
	Line           sql.NullString `db:"line"`
	Odds           int            `db:"odds"`
	Edge           float64        `db:"edge"`
	FireRating     int            `db:"fire_rating"`
	Locked         bool           `db:"locked"`
	LockedAt       sql.NullTime   `db:"locked_at"`
	LockChangedAt  sql.NullTime   `db:"lock_changed_at"`
	SourceEndpoint string         `db:"source_endpoint"`
	SourceTier     string         `db:"source_tier"`
}

// volatileColumns are the only columns an upsert of a known pick rewrites.
var volatileColumns = []string{"odds", "edge", "fire_rating", "source_endpoint", "source_tier"}

var pickColumns = []string{
	"public_id", "sport", "game_date", "game_time", "away_team", "home_team",
	"segment", "pick_type", "pick_direction", "pick_team", "line",
	"odds", "edge", "fire_rating", "locked", "locked_at", "lock_changed_at",
	"source_endpoint", "source_tier",
}

func toPickRow(p pick.Pick) pickTableModel {
	row := pickTableModel{
		PublicID:       p.ID,
		Sport:          p.Sport,
		GameDate:       p.GameDate,
		GameTime:       nullString(p.GameTime),
		AwayTeam:       p.AwayTeam,
		HomeTeam:       p.HomeTeam,
		Segment:        p.Segment,
		PickType:       p.PickType,
		PickDirection:  nullString(p.PickDirection),
		PickTeam:       nullString(p.PickTeam),
		Line:           nullString(p.Line),
		Odds:           p.Odds,
		Edge:           p.Edge,
		FireRating:     p.FireRating,
		Locked:         p.Locked,
		SourceEndpoint: p.Source.Endpoint,
		SourceTier:     string(p.Source.Tier),
	}
	if p.Locked && p.LockedAt != nil {
		row.LockedAt = sql.NullTime{Time: p.LockedAt.UTC(), Valid: true}
	}
	if !p.LockChangedAt.IsZero() {
		row.LockChangedAt = sql.NullTime{Time: p.LockChangedAt.UTC(), Valid: true}
	}
	return row
}

func (row pickTableModel) toDomain() pick.Pick {
	out := pick.Pick{
		ID:            row.PublicID,
		Sport:         row.Sport,
		GameDate:      row.GameDate,
		GameTime:      row.GameTime.String,
		AwayTeam:      row.AwayTeam,
		HomeTeam:      row.HomeTeam,
		Segment:       row.Segment,
		PickType:      row.PickType,
		PickDirection: row.PickDirection.String,
		PickTeam:      row.PickTeam.String,
		Line:          row.Line.String,
		Odds:          row.Odds,
		Edge:          row.Edge,
		FireRating:    row.FireRating,
		Locked:        row.Locked,
		Source: pick.Source{
			Sport:    row.Sport,
			Endpoint: row.SourceEndpoint,
			Tier:     pick.Tier(row.SourceTier),
		},
	}
	if row.LockChangedAt.Valid {
		out.LockChangedAt = row.LockChangedAt.Time
	}
	if row.Locked {
		at := out.LockChangedAt
		if row.LockedAt.Valid {
			at = row.LockedAt.Time
		}
		out.LockedAt = &at
	}
	return out
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}
