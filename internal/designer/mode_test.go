package designer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/designbot/internal/models"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name          string
		msg           Incoming
		wantMode      models.Mode
		wantErr       error
		wantOrigin    string
		wantInstr     string
		wantReference bool
	}{
		{
			name:      "plain text means create",
			msg:       Incoming{Text: "a cat on a windowsill"},
			wantMode:  models.ModeCreate,
			wantInstr: "a cat on a windowsill",
		},
		{
			name: "text reply to a non-photo message still means create",
			msg: Incoming{
				Text:  "a cat on a windowsill",
				Reply: &ReplyRef{OriginKey: "10", HasPhoto: false},
			},
			wantMode:  models.ModeCreate,
			wantInstr: "a cat on a windowsill",
		},
		{
			name: "text reply to a photo means edit",
			msg: Incoming{
				Text:  "make the sky purple",
				Reply: &ReplyRef{OriginKey: "42", HasPhoto: true},
			},
			wantMode:   models.ModeEdit,
			wantOrigin: "42",
			wantInstr:  "make the sky purple",
		},
		{
			name: "photo with caption replying to a photo means edit with reference, never integrate",
			msg: Incoming{
				Caption:     "match this style",
				HasPhoto:    true,
				PhotoFileID: "f1",
				Reply:       &ReplyRef{OriginKey: "42", HasPhoto: true},
			},
			wantMode:      models.ModeEdit,
			wantOrigin:    "42",
			wantInstr:     "match this style",
			wantReference: true,
		},
		{
			name: "photo without caption replying to a photo means integrate but needs a caption",
			msg: Incoming{
				HasPhoto:    true,
				PhotoFileID: "f1",
				Reply:       &ReplyRef{OriginKey: "42", HasPhoto: true},
			},
			wantMode:   models.ModeIntegrate,
			wantOrigin: "42",
			wantErr:    ErrCaptionRequired,
		},
		{
			name: "photo with caption and no reply means transform",
			msg: Incoming{
				Caption:     "put me on a beach",
				HasPhoto:    true,
				PhotoFileID: "f1",
			},
			wantMode:  models.ModeTransform,
			wantInstr: "put me on a beach",
		},
		{
			name: "photo with caption replying to a text message means transform",
			msg: Incoming{
				Caption:     "put me on a beach",
				HasPhoto:    true,
				PhotoFileID: "f1",
				Reply:       &ReplyRef{OriginKey: "9", HasPhoto: false},
			},
			wantMode:  models.ModeTransform,
			wantInstr: "put me on a beach",
		},
		{
			name: "photo without caption and no reply means transform but needs a caption",
			msg: Incoming{
				HasPhoto:    true,
				PhotoFileID: "f1",
			},
			wantMode: models.ModeTransform,
			wantErr:  ErrCaptionRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := Route(tt.msg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantMode, dec.Mode)
			assert.Equal(t, tt.wantOrigin, dec.OriginKey)
			assert.Equal(t, tt.wantInstr, dec.Instruction)
			assert.Equal(t, tt.wantReference, dec.WithReference)
		})
	}
}
