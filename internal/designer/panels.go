package designer

import (
	"strings"

	"github.com/voyago/designbot/internal/models"
	"github.com/voyago/designbot/internal/telegram"
)

// Callback data values understood by the designer control surface.
const (
	cbDesigner           = "ai_designer"
	cbExamples           = "ai_designer_examples"
	cbHistory            = "ai_designer_history"
	cbNoop               = "noop"
	cbBack               = "back_to_designer"
	cbHistoryPagePrefix  = "history_page_"
	cbReplaySelectPrefix = "replay_select_"
)

const welcomeText = `🎨 *AI Designer*

🆕 *Mode 1: Create*

Describe what you want -> get a photo

✏️ *Mode 2: Edit*

Reply to a bot photo -> say what to change

🎭 *Mode 3: Transform*

Upload your photo + say what to change

🎬 *Mode 4: Replay*

Reply to a bot photo + upload your photo -> I'll put you into the scene

💬 Ready? Send your request! 👇`

const examplesText = `💡 *How to use the AI Designer*

🆕 *Create*: just describe it — the prompt is refined automatically.
• A girl in a cafe
• Scandinavian interior

✏️ *Edit*: reply to a generated photo.
• add a cactus
• make the hair blonde

🎭 *Transform*: upload your photo with a caption.
• Put me on a beach
• Make the background cosmic

🎬 *Replay*: open History, pick a photo, then upload yours.
• Add me to this scene

💾 Every image stays in History for 48 hours — reply to any of them.`

const proRequiredText = "⚠️ The AI Designer is available to PRO users only"

const transformCaptionRequiredText = `⚠️ *Add a caption to the photo!*

Examples:
• "Put me on a Maldives beach"
• "Make the background cosmic"
• "Turn me into a superhero"`

const integrateCaptionRequiredText = `⚠️ *Add a caption to the photo!*

Examples:
• "Add me to this picture"
• "Place me in this interior"
• "I want to be in this place"`

const replayPhotoReminderText = `⚠️ *Send a PHOTO with a caption!*

📸 Upload your photo and add a caption:
• "Add me to this picture"
• "Place me in this interior"

❌ Or press the button below to cancel`

const replaySelectedText = `🎬 *Great!*

Now send your photo with a caption:
• "Add me to this picture"
• "Place me in this interior"
• "I want to be in this place"`

const replayCancelledText = `❌ *Replay cancelled*

💬 You can keep working with the AI Designer!`

const referenceExpiredText = "⚠️ Generation not found or expired (48 hours)"

const policyViolationText = `⚠️ The request was blocked by the provider's safety system.

Try rephrasing without mentioning:
• Weapons
• Violence
• Prohibited content

For example: instead of "add an axe" -> "a hiker with camping gear"`

func statusText(mode models.Mode, withReference bool) string {
	switch mode {
	case models.ModeEdit:
		if withReference {
			return "✏️ *Editing the image with your reference...*\n⏱ This takes 10-30 seconds"
		}
		return "✏️ *Editing the image...*\n⏱ This takes 10-30 seconds"
	case models.ModeTransform:
		return "🎭 *Transforming from your reference...*\n⏱ This takes 10-30 seconds"
	case models.ModeIntegrate:
		return "🎬 *Placing you into the image...*\n⏱ This takes 15-40 seconds"
	default:
		return "🎨 *Generating the image...*\n⏱ This takes 10-30 seconds"
	}
}

func resultCaption(mode models.Mode) string {
	switch mode {
	case models.ModeEdit:
		return "✅ *Changes applied!*\n\n💡 Keep editing? Reply to this photo!"
	case models.ModeTransform:
		return "✨ *Transformation complete!*\n\n💡 Want yourself in this picture? Reply to it with your photo!"
	case models.ModeIntegrate:
		return "🎬 *Done! You are in the scene!*\n\n💡 Want more changes? Reply to this photo!"
	default:
		return "✅ *Done!*\n\n💡 Want changes? Reply to this photo describing them!"
	}
}

func controlPanel() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "📜 History", CallbackData: cbHistory},
				{Text: "💡 Examples", CallbackData: cbExamples},
			},
			{
				{Text: "◀️ Back", CallbackData: cbBack},
			},
		},
	}
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// escapeMarkdown neutralizes characters the rich-text renderer would
// interpret, so raw provider error text can be shown verbatim.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
