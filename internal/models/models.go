package models

import "time"

// Mode classifies which prompt template and reference-image arity a
// generation used. The set is closed; values are persisted as-is.
type Mode string

const (
	ModeCreate    Mode = "create"
	ModeEdit      Mode = "edit"
	ModeTransform Mode = "transform"
	ModeIntegrate Mode = "integrate"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeCreate, ModeEdit, ModeTransform, ModeIntegrate:
		return true
	}
	return false
}

// Subscription tiers. Only PRO may use the designer.
const (
	TierFree = "FREE"
	TierPro  = "PRO"
)

type User struct {
	ID        string
	ChatID    int64
	Username  string
	Tier      string
	CreatedAt time.Time
}

// Generation is one produced image. OriginKey is the identifier of the
// message that delivered the image; replying to that message is how a user
// continues the edit chain, so OriginKey is the primary lookup key.
type Generation struct {
	ID        string
	UserID    string
	OriginKey string
	Prompt    string
	ImageURL  string
	Mode      Mode
	CreatedAt time.Time
	ExpiresAt time.Time
}
