package designer

import (
	"errors"

	"github.com/voyago/designbot/internal/models"
)

// ErrCaptionRequired means the message shape selected a mode that needs a
// caption but none was supplied. No external call is made; the caller
// re-prompts and the conversation stays where it is.
var ErrCaptionRequired = errors.New("caption required")

// ReplyRef describes the message an incoming message replies to.
type ReplyRef struct {
	// OriginKey is the replied-to message's identifier; it doubles as the
	// generation-record lookup key.
	OriginKey string
	HasPhoto  bool
}

// Incoming is the shape of one user message, everything Route needs to pick
// a mode.
type Incoming struct {
	Text        string
	Caption     string
	HasPhoto    bool
	PhotoFileID string
	Reply       *ReplyRef
}

// Decision is the selected mode plus the data needed to execute it.
type Decision struct {
	Mode        models.Mode
	Instruction string
	OriginKey   string
	PhotoFileID string
	// WithReference marks the edit variant where the user attached a
	// photo as a style reference alongside the caption.
	WithReference bool
}

// Route selects exactly one operation mode from the message shape. Rules
// are evaluated top to bottom, first match wins:
//
//	no photo, no photo reply          -> create (free text)
//	no photo, reply to a photo        -> edit (text is the instruction)
//	photo + photo reply + caption     -> edit with reference photo
//	photo + photo reply, no caption   -> integrate (caption still required)
//	photo, no photo reply             -> transform (caption required)
//
// When a caption and a reply-to-photo are both present, edit wins over
// integrate. That tie-break is deliberate and load-bearing: it is what the
// running system does, even though both modes are structurally eligible.
func Route(msg Incoming) (Decision, error) {
	replyHasPhoto := msg.Reply != nil && msg.Reply.HasPhoto

	if !msg.HasPhoto {
		if replyHasPhoto {
			return Decision{
				Mode:        models.ModeEdit,
				Instruction: msg.Text,
				OriginKey:   msg.Reply.OriginKey,
			}, nil
		}
		return Decision{
			Mode:        models.ModeCreate,
			Instruction: msg.Text,
		}, nil
	}

	if replyHasPhoto {
		if msg.Caption != "" {
			return Decision{
				Mode:          models.ModeEdit,
				Instruction:   msg.Caption,
				OriginKey:     msg.Reply.OriginKey,
				PhotoFileID:   msg.PhotoFileID,
				WithReference: true,
			}, nil
		}
		return Decision{
			Mode:        models.ModeIntegrate,
			OriginKey:   msg.Reply.OriginKey,
			PhotoFileID: msg.PhotoFileID,
		}, ErrCaptionRequired
	}

	if msg.Caption == "" {
		return Decision{
			Mode:        models.ModeTransform,
			PhotoFileID: msg.PhotoFileID,
		}, ErrCaptionRequired
	}
	return Decision{
		Mode:        models.ModeTransform,
		Instruction: msg.Caption,
		PhotoFileID: msg.PhotoFileID,
	}, nil
}
