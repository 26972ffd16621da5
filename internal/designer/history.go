package designer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/voyago/designbot/internal/db"
	"github.com/voyago/designbot/internal/models"
	"github.com/voyago/designbot/internal/session"
	"github.com/voyago/designbot/internal/telegram"
)

func (d *Designer) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.Message == nil {
		d.answer(ctx, cb.ID, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == cbNoop:
		d.answer(ctx, cb.ID, "", false)

	case cb.Data == cbDesigner:
		if !d.requirePro(ctx, cb) {
			return
		}
		d.sessions.Set(chatID, session.State{Phase: session.PhaseActive})
		d.send(ctx, chatID, welcomeText, controlPanel())
		d.answer(ctx, cb.ID, "", false)

	case cb.Data == cbExamples:
		d.send(ctx, chatID, examplesText, controlPanel())
		d.answer(ctx, cb.ID, "", false)

	case cb.Data == cbHistory:
		if !d.requirePro(ctx, cb) {
			return
		}
		d.showHistory(ctx, cb)

	case strings.HasPrefix(cb.Data, cbHistoryPagePrefix):
		d.navigateHistory(ctx, cb)

	case strings.HasPrefix(cb.Data, cbReplaySelectPrefix):
		d.selectForReplay(ctx, cb)

	case cb.Data == cbBack:
		state := d.sessions.Get(chatID)
		d.sessions.Set(chatID, session.State{Phase: session.PhaseActive})
		if state.Phase == session.PhaseAwaitingReplayPhoto {
			d.send(ctx, chatID, replayCancelledText, controlPanel())
		} else {
			d.send(ctx, chatID, welcomeText, controlPanel())
		}
		d.answer(ctx, cb.ID, "", false)

	default:
		d.answer(ctx, cb.ID, "", false)
	}
}

func (d *Designer) requirePro(ctx context.Context, cb *telegram.CallbackQuery) bool {
	user, err := d.store.GetUserByChatID(ctx, cb.Message.Chat.ID)
	if err != nil || user.Tier != models.TierPro {
		d.answer(ctx, cb.ID, proRequiredText, true)
		return false
	}
	return true
}

func (d *Designer) showHistory(ctx context.Context, cb *telegram.CallbackQuery) {
	user, err := d.store.GetUserByChatID(ctx, cb.Message.Chat.ID)
	if err != nil {
		d.answer(ctx, cb.ID, proRequiredText, true)
		return
	}
	gens, err := d.store.ListRecentGenerations(ctx, user.ID, historyLimit)
	if err != nil {
		d.log.Error("listing history failed", zap.Error(err))
		d.answer(ctx, cb.ID, "❌ Could not load history", true)
		return
	}
	if len(gens) == 0 {
		d.answer(ctx, cb.ID, "📭 You have no saved generations yet", true)
		return
	}
	d.renderHistoryPage(ctx, cb.Message, gens, 0)
	d.answer(ctx, cb.ID, "", false)
}

func (d *Designer) navigateHistory(ctx context.Context, cb *telegram.CallbackQuery) {
	page, err := strconv.Atoi(strings.TrimPrefix(cb.Data, cbHistoryPagePrefix))
	if err != nil {
		d.answer(ctx, cb.ID, "❌ Page not found", false)
		return
	}
	user, err := d.store.GetUserByChatID(ctx, cb.Message.Chat.ID)
	if err != nil {
		d.answer(ctx, cb.ID, proRequiredText, true)
		return
	}
	gens, err := d.store.ListRecentGenerations(ctx, user.ID, historyLimit)
	if err != nil || page < 0 || page >= len(gens) {
		d.answer(ctx, cb.ID, "❌ Page not found", false)
		return
	}
	d.renderHistoryPage(ctx, cb.Message, gens, page)
	d.answer(ctx, cb.ID, "", false)
}

func (d *Designer) renderHistoryPage(ctx context.Context, msg *telegram.Message, gens []models.Generation, page int) {
	gen := gens[page]
	caption := historyCaption(gen, page, len(gens))
	keyboard := historyKeyboard(gen, page, len(gens))

	err := d.bot.EditMessageMedia(ctx, msg.Chat.ID, msg.MessageID, gen.ImageURL, caption, keyboard)
	if err == nil {
		return
	}
	// The panel message may be plain text; fall back to a fresh photo.
	if _, err := d.bot.SendPhoto(ctx, msg.Chat.ID, gen.ImageURL, caption, keyboard); err != nil {
		d.log.Error("rendering history page failed", zap.Int("page", page), zap.Error(err))
	}
}

var modeBadges = map[models.Mode]string{
	models.ModeCreate:    "🆕 Create",
	models.ModeEdit:      "✏️ Edit",
	models.ModeTransform: "🎭 Transform",
	models.ModeIntegrate: "🎬 Replay",
}

func historyCaption(gen models.Generation, page, total int) string {
	badge, ok := modeBadges[gen.Mode]
	if !ok {
		badge = "🎨 AI"
	}
	return fmt.Sprintf("📜 *Generation history* (%d/%d)\n\n%s\n_%s_",
		page+1, total, badge, gen.CreatedAt.Format("02.01.2006 15:04"))
}

func historyKeyboard(gen models.Generation, page, total int) *telegram.InlineKeyboardMarkup {
	var nav []telegram.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, telegram.InlineKeyboardButton{
			Text:         "◀️",
			CallbackData: fmt.Sprintf("%s%d", cbHistoryPagePrefix, page-1),
		})
	}
	nav = append(nav, telegram.InlineKeyboardButton{
		Text:         fmt.Sprintf("%d/%d", page+1, total),
		CallbackData: cbNoop,
	})
	if page < total-1 {
		nav = append(nav, telegram.InlineKeyboardButton{
			Text:         "▶️",
			CallbackData: fmt.Sprintf("%s%d", cbHistoryPagePrefix, page+1),
		})
	}
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			nav,
			{{Text: "🎬 Replay", CallbackData: cbReplaySelectPrefix + gen.ID}},
			{{Text: "◀️ Back", CallbackData: cbBack}},
		},
	}
}

// selectForReplay stashes the chosen generation id in the scratchpad and
// moves the conversation to the awaiting-photo phase.
func (d *Designer) selectForReplay(ctx context.Context, cb *telegram.CallbackQuery) {
	genID := strings.TrimPrefix(cb.Data, cbReplaySelectPrefix)
	chatID := cb.Message.Chat.ID

	d.sessions.Set(chatID, session.State{
		Phase:                session.PhaseAwaitingReplayPhoto,
		SelectedGenerationID: genID,
	})
	d.send(ctx, chatID, replaySelectedText, controlPanel())
	d.answer(ctx, cb.ID, "", false)
}

// handleAwaitedReplayPhoto handles a message that arrives while a history
// selection is pending a photo.
func (d *Designer) handleAwaitedReplayPhoto(ctx context.Context, user *models.User, msg *telegram.Message, state session.State) {
	chatID := msg.Chat.ID

	if !msg.HasPhoto() {
		d.send(ctx, chatID, replayPhotoReminderText, controlPanel())
		return
	}
	if msg.Caption == "" {
		d.send(ctx, chatID, integrateCaptionRequiredText, controlPanel())
		return
	}
	if state.SelectedGenerationID == "" {
		d.sessions.Set(chatID, session.State{Phase: session.PhaseActive})
		d.send(ctx, chatID, "⚠️ Something went wrong. Pick an image from History again.", controlPanel())
		return
	}

	d.replayFromHistory(ctx, user, msg, state.SelectedGenerationID)
}

// replayFromHistory is the integrate pipeline keyed by an explicit record
// id instead of a reply origin key.
func (d *Designer) replayFromHistory(ctx context.Context, user *models.User, msg *telegram.Message, generationID string) {
	chatID := msg.Chat.ID
	dec := Decision{Mode: models.ModeIntegrate, Instruction: msg.Caption, PhotoFileID: msg.LargestPhoto()}

	status, err := d.bot.SendMessage(ctx, chatID, statusText(dec.Mode, false), nil)
	if err != nil {
		d.log.Warn("sending status failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	prompt, refs, err := d.prepareReplay(ctx, generationID, dec)
	if err == nil {
		var imageURL string
		imageURL, err = d.synth.Synthesize(ctx, prompt, refs)
		if err == nil {
			d.cleanup(ctx, chatID, msg.MessageID, status)
			d.deliver(ctx, user, chatID, prompt, imageURL, models.ModeIntegrate)
			d.sessions.Set(chatID, session.State{Phase: session.PhaseActive})
			return
		}
	}

	d.cleanupStatus(ctx, chatID, status)
	d.respondError(ctx, chatID, dec, err)
}

func (d *Designer) prepareReplay(ctx context.Context, generationID string, dec Decision) (string, []string, error) {
	gen, err := d.store.GetGenerationByID(ctx, generationID)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil, ErrReferenceExpired
	}
	if err != nil {
		return "", nil, err
	}
	photoURL, err := d.bot.FileURL(ctx, dec.PhotoFileID)
	if err != nil {
		return "", nil, err
	}
	prompt, err := d.enhance.Integration(ctx, dec.Instruction)
	if err != nil {
		return "", nil, err
	}
	return prompt, []string{gen.ImageURL, photoURL}, nil
}

func (d *Designer) answer(ctx context.Context, callbackID, text string, showAlert bool) {
	if err := d.bot.AnswerCallbackQuery(ctx, callbackID, text, showAlert); err != nil {
		d.log.Debug("answering callback failed", zap.Error(err))
	}
}
