// Package designer is the conversational image-editing pipeline: it routes
// an incoming message to one of four operation modes, enhances the user's
// text into a model-ready prompt, calls the synthesis provider with the
// resolved reference images, delivers the result and records it under the
// delivered message's identifier so a reply can continue the chain.
package designer

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/voyago/designbot/internal/db"
	"github.com/voyago/designbot/internal/models"
	"github.com/voyago/designbot/internal/promptgen"
	"github.com/voyago/designbot/internal/session"
	"github.com/voyago/designbot/internal/synth"
	"github.com/voyago/designbot/internal/telegram"
)

// ErrReferenceExpired means the replied-to generation is unknown or past
// its 48-hour window. The conversation leaves the chain and returns to the
// idle designer state.
var ErrReferenceExpired = errors.New("generation not found or expired")

// referenceSuffix is appended to the edit instruction when the user
// attached a photo as a style reference.
const referenceSuffix = " (Reference photo provided for style/composition guidance)"

// transformPrefix frames the caption for transform-mode enhancement.
const transformPrefix = "Transform this image: "

const historyLimit = 50

// Store is the generation-lineage and user-record store.
type Store interface {
	GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpsertUser(ctx context.Context, chatID int64, username, tier string) (*models.User, error)
	CreateGeneration(ctx context.Context, userID, originKey, prompt, imageURL string, mode models.Mode) (*models.Generation, error)
	GetGenerationByOriginKey(ctx context.Context, originKey string) (*models.Generation, error)
	GetGenerationByID(ctx context.Context, id string) (*models.Generation, error)
	ListRecentGenerations(ctx context.Context, userID string, limit int) ([]models.Generation, error)
}

// Enhancer turns free-form user text into a model-ready prompt.
type Enhancer interface {
	Creation(ctx context.Context, input string) (string, error)
	Refinement(ctx context.Context, input string) (string, error)
	Integration(ctx context.Context, input string) (string, error)
}

// Synthesizer produces one image URL from a prompt and 0-2 reference URLs.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, refs []string) (string, error)
}

// Messenger is the transport surface the designer needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	EditMessageMedia(ctx context.Context, chatID, messageID int64, photoURL, caption string, keyboard *telegram.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	FileURL(ctx context.Context, fileID string) (string, error)
}

type Designer struct {
	store    Store
	enhance  Enhancer
	synth    Synthesizer
	bot      Messenger
	sessions *session.Store
	log      *zap.Logger
}

func New(store Store, enhance Enhancer, synthesizer Synthesizer, bot Messenger, sessions *session.Store, log *zap.Logger) *Designer {
	return &Designer{
		store:    store,
		enhance:  enhance,
		synth:    synthesizer,
		bot:      bot,
		sessions: sessions,
		log:      log,
	}
}

// HandleUpdate implements telegram.UpdateHandler.
func (d *Designer) HandleUpdate(ctx context.Context, update *telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	}
}

func (d *Designer) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	user, err := d.store.GetUserByChatID(ctx, chatID)
	if errors.Is(err, db.ErrNotFound) {
		// First contact: record the user so a later tier upgrade has a row
		// to land on, then deny.
		if _, err := d.store.UpsertUser(ctx, chatID, msg.From.Username, models.TierFree); err != nil {
			d.log.Error("registering user failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		d.send(ctx, chatID, proRequiredText, nil)
		return
	}
	if err != nil {
		d.log.Error("user lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		d.send(ctx, chatID, proRequiredText, nil)
		return
	}
	if user.Tier != models.TierPro {
		d.send(ctx, chatID, proRequiredText, nil)
		return
	}

	if state := d.sessions.Get(chatID); state.Phase == session.PhaseAwaitingReplayPhoto {
		d.handleAwaitedReplayPhoto(ctx, user, msg, state)
		return
	}

	// Stickers, voice notes and the like carry neither text nor a photo;
	// there is nothing to design from.
	if msg.Text == "" && !msg.HasPhoto() {
		d.send(ctx, chatID, welcomeText, controlPanel())
		return
	}

	dec, err := Route(incomingFromMessage(msg))
	if errors.Is(err, ErrCaptionRequired) {
		// Local recovery: re-prompt, stay in the same mode, no
		// external calls.
		text := transformCaptionRequiredText
		if dec.Mode == models.ModeIntegrate {
			text = integrateCaptionRequiredText
		}
		d.send(ctx, chatID, text, controlPanel())
		return
	}

	d.generate(ctx, user, msg, dec)
}

func incomingFromMessage(msg *telegram.Message) Incoming {
	in := Incoming{
		Text:        msg.Text,
		Caption:     msg.Caption,
		HasPhoto:    msg.HasPhoto(),
		PhotoFileID: msg.LargestPhoto(),
	}
	if msg.ReplyToMessage != nil {
		in.Reply = &ReplyRef{
			OriginKey: strconv.FormatInt(msg.ReplyToMessage.MessageID, 10),
			HasPhoto:  msg.ReplyToMessage.HasPhoto(),
		}
	}
	return in
}

// generate runs the pipeline: status -> resolve reference -> enhance ->
// synthesize -> deliver -> record. Steps are strictly sequential; each
// depends on the previous step's output.
func (d *Designer) generate(ctx context.Context, user *models.User, msg *telegram.Message, dec Decision) {
	chatID := msg.Chat.ID
	status, err := d.bot.SendMessage(ctx, chatID, statusText(dec.Mode, dec.WithReference), nil)
	if err != nil {
		d.log.Warn("sending status failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	prompt, refs, err := d.prepare(ctx, dec)
	if err == nil {
		var imageURL string
		imageURL, err = d.synth.Synthesize(ctx, prompt, refs)
		if err == nil {
			d.cleanup(ctx, chatID, msg.MessageID, status)
			d.deliver(ctx, user, chatID, prompt, imageURL, dec.Mode)
			return
		}
	}

	d.cleanupStatus(ctx, chatID, status)
	d.respondError(ctx, chatID, dec, err)
}

// prepare resolves the referenced generation (if any) and produces the
// enhanced prompt plus the reference-image list. Reference resolution comes
// first: a dead chain must not cost an enhancement call.
func (d *Designer) prepare(ctx context.Context, dec Decision) (string, []string, error) {
	switch dec.Mode {
	case models.ModeCreate:
		prompt, err := d.enhance.Creation(ctx, dec.Instruction)
		return prompt, nil, err

	case models.ModeEdit:
		gen, err := d.resolveOrigin(ctx, dec.OriginKey)
		if err != nil {
			return "", nil, err
		}
		refs := []string{gen.ImageURL}
		instruction := dec.Instruction
		if dec.WithReference {
			refURL, err := d.bot.FileURL(ctx, dec.PhotoFileID)
			if err != nil {
				return "", nil, err
			}
			refs = append(refs, refURL)
			instruction += referenceSuffix
		}
		prompt, err := d.enhance.Refinement(ctx, instruction)
		return prompt, refs, err

	case models.ModeTransform:
		photoURL, err := d.bot.FileURL(ctx, dec.PhotoFileID)
		if err != nil {
			return "", nil, err
		}
		prompt, err := d.enhance.Creation(ctx, transformPrefix+dec.Instruction)
		return prompt, []string{photoURL}, err

	case models.ModeIntegrate:
		gen, err := d.resolveOrigin(ctx, dec.OriginKey)
		if err != nil {
			return "", nil, err
		}
		photoURL, err := d.bot.FileURL(ctx, dec.PhotoFileID)
		if err != nil {
			return "", nil, err
		}
		prompt, err := d.enhance.Integration(ctx, dec.Instruction)
		return prompt, []string{gen.ImageURL, photoURL}, err

	default:
		return "", nil, errors.New("unknown mode")
	}
}

func (d *Designer) resolveOrigin(ctx context.Context, originKey string) (*models.Generation, error) {
	gen, err := d.store.GetGenerationByOriginKey(ctx, originKey)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrReferenceExpired
	}
	return gen, err
}

// deliver sends the result and records the generation under the delivered
// message's identifier. The record cannot exist before delivery: its
// identity is the delivered message id.
func (d *Designer) deliver(ctx context.Context, user *models.User, chatID int64, prompt, imageURL string, mode models.Mode) {
	result, err := d.bot.SendPhoto(ctx, chatID, imageURL, resultCaption(mode), controlPanel())
	if err != nil {
		d.log.Error("delivering result failed",
			zap.Int64("chat_id", chatID),
			zap.String("mode", string(mode)),
			zap.Error(err))
		d.send(ctx, chatID, "❌ *Generation failed*\n\nTry a different request.", controlPanel())
		return
	}

	originKey := strconv.FormatInt(result.MessageID, 10)
	if _, err := d.store.CreateGeneration(ctx, user.ID, originKey, prompt, imageURL, mode); err != nil {
		// The user already has the image; only the edit chain is lost.
		d.log.Error("recording generation failed",
			zap.String("origin_key", originKey),
			zap.String("mode", string(mode)),
			zap.Error(err))
	}
}

// cleanup removes the user's input message and the transient status
// message. Deletion failures never escalate.
func (d *Designer) cleanup(ctx context.Context, chatID, userMessageID int64, status *telegram.Message) {
	if err := d.bot.DeleteMessage(ctx, chatID, userMessageID); err != nil {
		d.log.Debug("deleting user message failed", zap.Error(err))
	}
	d.cleanupStatus(ctx, chatID, status)
}

func (d *Designer) cleanupStatus(ctx context.Context, chatID int64, status *telegram.Message) {
	if status == nil {
		return
	}
	if err := d.bot.DeleteMessage(ctx, chatID, status.MessageID); err != nil {
		d.log.Debug("deleting status message failed", zap.Error(err))
	}
}

// respondError converts a pipeline failure into a user-facing message.
// Every path leaves the user inside the designer control surface, able to
// retry immediately.
func (d *Designer) respondError(ctx context.Context, chatID int64, dec Decision, err error) {
	d.log.Error("generation pipeline failed",
		zap.Int64("chat_id", chatID),
		zap.String("mode", string(dec.Mode)),
		zap.Bool("has_reference", dec.OriginKey != ""),
		zap.Error(err))

	var providerErr *promptgen.ProviderError
	var text string
	switch {
	case errors.Is(err, ErrReferenceExpired):
		text = referenceExpiredText
		// The chain is dead; fall back to the idle designer state.
		d.sessions.Set(chatID, session.State{Phase: session.PhaseActive})
	case errors.Is(err, synth.ErrContentPolicy):
		text = policyViolationText
	case errors.As(err, &providerErr):
		text = "❌ *Generation failed*\n\n`" + escapeMarkdown(providerErr.Message) + "`\n\nTry a different request."
	default:
		text = "❌ *Generation failed*\n\nTry a different request."
	}
	d.send(ctx, chatID, text, controlPanel())
}

func (d *Designer) send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if _, err := d.bot.SendMessage(ctx, chatID, text, keyboard); err != nil {
		d.log.Warn("sending message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
