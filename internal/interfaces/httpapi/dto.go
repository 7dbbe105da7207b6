package httpapi

import (
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

type listPicksQuery struct {
	Sports []string `validate:"omitempty,max=16,dive,required,max=16"`
	Date   string   `validate:"omitempty,max=32"`
}

type setLockRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}

type trackedPicksDTO struct {
	Count int         `json:"count"`
	Picks []pick.Pick `json:"picks"`
}

type snapshotDTO struct {
	FetchedAt time.Time   `json:"fetchedAt"`
	Count     int         `json:"count"`
	Picks     []pick.Pick `json:"picks"`
}

type lastSourceDTO struct {
	Sport    string    `json:"sport"`
	Endpoint string    `json:"endpoint"`
	Tier     pick.Tier `json:"tier"`
}

type cacheClearedDTO struct {
	Sport   string `json:"sport"`
	DateKey string `json:"dateKey,omitempty"`
	Cleared bool   `json:"cleared"`
}
