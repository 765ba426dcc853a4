package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"fieldreport/internal/logging"
	"fieldreport/internal/models"
	"fieldreport/internal/services"
)

// Menu button labels. Buttons are matched by their exact text.
const (
	ButtonEnterData    = "📝 Внести данные"
	ButtonViewData     = "👀 Посмотреть данные"
	ButtonDeleteData   = "🗑 Удалить данные"
	ButtonVerification = "🔔 Поверка приборов"
	ButtonAll          = "Все"
	ButtonBack         = "Назад"
)

// User-facing reply texts
const (
	msgAccessDenied    = "⛔ Доступ запрещён."
	msgUseMenu         = "Воспользуйтесь кнопками меню 👇"
	msgChooseCategory  = "Выберите категорию:"
	msgValidationEmpty = "Не нашёл ни одной строки с данными. Попробуйте ещё раз."
	msgSaveFailed      = "Не удалось сохранить записи. Попробуйте позже."
	msgListFailed      = "Не удалось получить записи. Попробуйте позже."
	msgNothingToDelete = "Удалять нечего — записей нет."
	msgChooseDelete    = "Выберите запись для удаления:"
	msgNotFound        = "Запись уже удалена."
)

// deletePreviewLimit caps the report content preview on delete buttons
const deletePreviewLimit = 40

const eventTimeout = 30 * time.Second

// Sender is the outbound side of the chat transport
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup any) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *models.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// BotHandler is the per-user session state machine: it classifies inbound
// updates into events, dispatches them against the user's current state,
// and drives the report store, digest formatter, verification reader and
// delete workflow.
type BotHandler struct {
	sender       Sender
	sessions     *services.SessionService
	reports      *services.ReportService
	digest       *services.DigestService
	verification *services.VerificationService
	allowed      map[int64]struct{}
}

// NewBotHandler creates a new bot handler
func NewBotHandler(
	sender Sender,
	sessions *services.SessionService,
	reports *services.ReportService,
	digest *services.DigestService,
	verification *services.VerificationService,
	allowedUserIDs []int64,
) *BotHandler {
	allowed := make(map[int64]struct{}, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = struct{}{}
	}
	return &BotHandler{
		sender:       sender,
		sessions:     sessions,
		reports:      reports,
		digest:       digest,
		verification: verification,
		allowed:      allowed,
	}
}

// HandleUpdate classifies one Telegram update and dispatches it. Called by
// the transport for each update, in arrival order.
func (h *BotHandler) HandleUpdate(update *models.TelegramUpdate) {
	event := classifyUpdate(update)
	if event == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	h.Dispatch(ctx, event)
}

// classifyUpdate decides the inbound event variant once, at the transport
// boundary: callback → Selection, leading slash → Command, exact button
// label → MenuButton, anything else → FreeText.
func classifyUpdate(update *models.TelegramUpdate) models.InboundEvent {
	if cq := update.CallbackQuery; cq != nil && cq.From != nil {
		e := models.SelectionEvent{
			EventMeta: models.EventMeta{
				UserID:      cq.From.ID,
				ChatID:      cq.From.ID,
				DisplayName: cq.From.DisplayName(),
			},
			Token:      cq.Data,
			CallbackID: cq.ID,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			e.ChatID = cq.Message.Chat.ID
			e.MessageID = cq.Message.MessageID
		}
		return e
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return nil
	}

	meta := models.EventMeta{
		UserID:      msg.From.ID,
		ChatID:      msg.Chat.ID,
		DisplayName: msg.From.DisplayName(),
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		name := strings.TrimPrefix(strings.Fields(text)[0], "/")
		// Commands may carry a @botname suffix in group chats
		if i := strings.Index(name, "@"); i >= 0 {
			name = name[:i]
		}
		return models.CommandEvent{EventMeta: meta, Name: name}
	}
	if isMenuButton(text) {
		return models.MenuButtonEvent{EventMeta: meta, Label: text}
	}
	return models.FreeTextEvent{EventMeta: meta, Text: msg.Text}
}

func isMenuButton(text string) bool {
	switch text {
	case ButtonEnterData, ButtonViewData, ButtonDeleteData, ButtonVerification, ButtonAll, ButtonBack:
		return true
	}
	_, ok := models.CategoryFromLabel(text)
	return ok
}

// Dispatch runs one event through the state machine. The allow-list gate
// comes first: a rejected user gets a fixed denial and no state changes.
func (h *BotHandler) Dispatch(ctx context.Context, event models.InboundEvent) {
	userID := event.EventUserID()

	if _, ok := h.allowed[userID]; !ok {
		log.Printf("⛔ Rejected event from user %d (not on allow-list)", userID)
		if sel, isSelection := event.(models.SelectionEvent); isSelection {
			h.answer(ctx, sel.CallbackID, msgAccessDenied)
		} else {
			h.send(ctx, event.EventChatID(), msgAccessDenied, nil)
		}
		return
	}

	switch e := event.(type) {
	case models.CommandEvent:
		h.handleCommand(ctx, e)
	case models.MenuButtonEvent:
		h.handleMenuButton(ctx, e)
	case models.FreeTextEvent:
		h.handleFreeText(ctx, e)
	case models.SelectionEvent:
		h.handleSelection(ctx, e)
	}
}

// handleCommand handles slash commands. /start unconditionally discards
// any in-flight interaction and returns the user to the top menu.
func (h *BotHandler) handleCommand(ctx context.Context, e models.CommandEvent) {
	switch e.Name {
	case "start":
		h.sessions.Clear(e.UserID)
		greeting := fmt.Sprintf("Привет, %s! Я веду учёт неполадок оборудования. Выберите действие:", e.DisplayName)
		h.send(ctx, e.ChatID, greeting, mainMenu())
	default:
		h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
	}
}

func (h *BotHandler) handleMenuButton(ctx context.Context, e models.MenuButtonEvent) {
	switch state := h.sessions.Get(e.UserID).(type) {
	case models.Idle:
		h.handleTopMenu(ctx, e)
	case models.ChoosingInputCategory:
		h.handleInputCategory(ctx, e)
	case models.ChoosingViewCategory:
		h.handleViewCategory(ctx, e)
	case models.ChoosingDeleteCategory:
		h.handleDeleteCategory(ctx, e)
	case models.AwaitingFreeText:
		// A message that happens to match a button label while text is
		// awaited is still the pending input, except an explicit back.
		if e.Label == ButtonBack {
			h.sessions.Clear(e.UserID)
			h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
			return
		}
		h.saveFreeText(ctx, e.EventMeta, state.Category, e.Label)
	}
}

func (h *BotHandler) handleTopMenu(ctx context.Context, e models.MenuButtonEvent) {
	switch e.Label {
	case ButtonEnterData:
		h.sessions.Set(e.UserID, models.ChoosingInputCategory{})
		h.send(ctx, e.ChatID, msgChooseCategory, categoryMenu(false))
	case ButtonViewData:
		h.sessions.Set(e.UserID, models.ChoosingViewCategory{})
		h.send(ctx, e.ChatID, msgChooseCategory, categoryMenu(true))
	case ButtonDeleteData:
		h.sessions.Set(e.UserID, models.ChoosingDeleteCategory{})
		h.send(ctx, e.ChatID, msgChooseCategory, categoryMenu(true))
	case ButtonVerification:
		h.send(ctx, e.ChatID, h.verification.Read(), mainMenu())
	default:
		h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
	}
}

func (h *BotHandler) handleInputCategory(ctx context.Context, e models.MenuButtonEvent) {
	if e.Label == ButtonBack {
		h.sessions.Clear(e.UserID)
		h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
		return
	}

	category, ok := models.CategoryFromLabel(e.Label)
	if !ok {
		h.send(ctx, e.ChatID, msgUseMenu, nil)
		return
	}

	h.sessions.Set(e.UserID, models.AwaitingFreeText{Category: category})
	prompt := fmt.Sprintf("Отправьте данные по категории «%s» — по одной записи в строке:", category.Label())
	h.send(ctx, e.ChatID, prompt, &models.ReplyKeyboardRemove{RemoveKeyboard: true})
}

func (h *BotHandler) handleViewCategory(ctx context.Context, e models.MenuButtonEvent) {
	if e.Label == ButtonBack {
		h.sessions.Clear(e.UserID)
		h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
		return
	}

	// Rendering a view keeps the chooser open so several categories can
	// be browsed in a row.
	if e.Label == ButtonAll {
		reports, err := h.reports.ListAll("")
		if err != nil {
			log.Printf("❌ Failed to list reports: %v", err)
			h.send(ctx, e.ChatID, msgListFailed, nil)
			return
		}
		h.send(ctx, e.ChatID, h.digest.Format(reports, false), nil)
		return
	}

	category, ok := models.CategoryFromLabel(e.Label)
	if !ok {
		h.send(ctx, e.ChatID, msgUseMenu, nil)
		return
	}

	reports, err := h.reports.ListAll(category)
	if err != nil {
		log.Printf("❌ Failed to list reports: %v", err)
		h.send(ctx, e.ChatID, msgListFailed, nil)
		return
	}
	h.send(ctx, e.ChatID, h.digest.Format(reports, true), nil)
}

func (h *BotHandler) handleDeleteCategory(ctx context.Context, e models.MenuButtonEvent) {
	if e.Label == ButtonBack {
		h.sessions.Clear(e.UserID)
		h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
		return
	}

	var category models.Category
	if e.Label != ButtonAll {
		var ok bool
		category, ok = models.CategoryFromLabel(e.Label)
		if !ok {
			h.send(ctx, e.ChatID, msgUseMenu, nil)
			return
		}
	}

	// The chooser stays open: the listing is sent on top of it and
	// selection arrives as a callback.
	h.renderDeleteList(ctx, e.ChatID, category)
}

// renderDeleteList sends an inline keyboard with one button per report;
// the callback data carries the report id as an opaque token
func (h *BotHandler) renderDeleteList(ctx context.Context, chatID int64, category models.Category) {
	reports, err := h.reports.ListAll(category)
	if err != nil {
		log.Printf("❌ Failed to list reports for deletion: %v", err)
		h.send(ctx, chatID, msgListFailed, nil)
		return
	}

	if len(reports) == 0 {
		h.send(ctx, chatID, msgNothingToDelete, nil)
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(reports))
	for _, r := range reports {
		label := fmt.Sprintf("%s · %s %s",
			truncate(r.Content, deletePreviewLimit),
			r.CreatedAt.Format("02.01.2006"),
			r.CreatedAt.Format("15:04"))
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: deleteToken(r.ID),
		}})
	}

	h.send(ctx, chatID, msgChooseDelete, &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (h *BotHandler) handleFreeText(ctx context.Context, e models.FreeTextEvent) {
	switch state := h.sessions.Get(e.UserID).(type) {
	case models.AwaitingFreeText:
		h.saveFreeText(ctx, e.EventMeta, state.Category, e.Text)
	default:
		h.send(ctx, e.ChatID, msgUseMenu, mainMenu())
	}
}

// saveFreeText persists one report per non-empty trimmed line, all under
// the bound category, then confirms with a count-sensitive message. The
// session always returns to Idle, whether the submission was saved or
// rejected.
func (h *BotHandler) saveFreeText(ctx context.Context, meta models.EventMeta, category models.Category, text string) {
	h.sessions.Clear(meta.UserID)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		h.send(ctx, meta.ChatID, msgValidationEmpty, mainMenu())
		return
	}

	for _, line := range lines {
		if err := h.reports.Save(meta.UserID, meta.DisplayName, category, line); err != nil {
			log.Printf("❌ Failed to save report for user %d: %v", meta.UserID, err)
			h.send(ctx, meta.ChatID, msgSaveFailed, mainMenu())
			return
		}
	}

	n := len(lines)
	logging.WithUser(meta.UserID, meta.DisplayName).Info("reports saved",
		"category", string(category),
		"count", n,
	)
	confirmation := fmt.Sprintf("✅ Сохранено: %d %s.", n, pluralizeRecords(n))
	h.send(ctx, meta.ChatID, confirmation, mainMenu())
}

// handleSelection runs the delete workflow's selection step: resolve the
// token, delete if the report still exists, and replace the listing with
// the outcome. A stale token is informational, not an error.
func (h *BotHandler) handleSelection(ctx context.Context, e models.SelectionEvent) {
	id, ok := parseDeleteToken(e.Token)
	if !ok {
		h.answer(ctx, e.CallbackID, "")
		return
	}

	report, err := h.reports.Find(id)
	if err != nil {
		log.Printf("❌ Failed to look up report %d: %v", id, err)
		h.answer(ctx, e.CallbackID, msgListFailed)
		return
	}

	if report == nil {
		h.answer(ctx, e.CallbackID, msgNotFound)
		return
	}

	if err := h.reports.Delete(id); err != nil {
		log.Printf("❌ Failed to delete report %d: %v", id, err)
		h.answer(ctx, e.CallbackID, msgSaveFailed)
		return
	}

	log.Printf("🗑 Report %d deleted by user %d", id, e.UserID)
	h.answer(ctx, e.CallbackID, "Удалено")
	if e.MessageID != 0 {
		confirmation := fmt.Sprintf("🗑 Удалено: %s", report.Content)
		if err := h.sender.EditMessageText(ctx, e.ChatID, e.MessageID, confirmation, nil); err != nil {
			log.Printf("⚠️ Failed to edit delete listing: %v", err)
		}
	}
}

// ============================================================================
// Keyboards and helpers
// ============================================================================

func mainMenu() *models.ReplyKeyboardMarkup {
	return models.ReplyRows(
		[]string{ButtonEnterData, ButtonViewData},
		[]string{ButtonDeleteData, ButtonVerification},
	)
}

// categoryMenu renders the category chooser; withAll adds the cross-
// category button the view and delete flows offer
func categoryMenu(withAll bool) *models.ReplyKeyboardMarkup {
	rows := [][]string{
		{models.CategoryOverheat.Label(), models.CategoryDeviation.Label()},
		{models.CategoryBreakdown.Label(), models.CategoryUnclear.Label()},
	}
	if withAll {
		rows = append(rows, []string{ButtonAll, ButtonBack})
	} else {
		rows = append(rows, []string{ButtonBack})
	}
	return models.ReplyRows(rows...)
}

func deleteToken(id int64) string {
	return "delete_" + strconv.FormatInt(id, 10)
}

func parseDeleteToken(token string) (int64, bool) {
	raw, found := strings.CutPrefix(token, "delete_")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// truncate caps s at limit runes, ellipsis-suffixed
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// pluralizeRecords returns the Russian plural form of "запись" for n:
// 1 запись, 2–4 записи, 5+ записей.
func pluralizeRecords(n int) string {
	if n%100 >= 11 && n%100 <= 14 {
		return "записей"
	}
	switch n % 10 {
	case 1:
		return "запись"
	case 2, 3, 4:
		return "записи"
	}
	return "записей"
}

func (h *BotHandler) send(ctx context.Context, chatID int64, text string, markup any) {
	if err := h.sender.SendMessage(ctx, chatID, text, markup); err != nil {
		log.Printf("⚠️ Failed to send message to chat %d: %v", chatID, err)
	}
}

func (h *BotHandler) answer(ctx context.Context, callbackID, text string) {
	if err := h.sender.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		log.Printf("⚠️ Failed to answer callback: %v", err)
	}
}
