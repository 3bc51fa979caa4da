package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evelansk/grouppassbot/internal/config"
	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/repository"
	"github.com/evelansk/grouppassbot/internal/service"
)

type Bot struct {
	cfg        config.Config
	api        *tgbotapi.BotAPI
	log        *slog.Logger
	users      *service.UserService
	plans      *service.PlanService
	promo      *service.PromoService
	payments   *service.PaymentService
	manual     *service.ManualPaymentService
	methods    *repository.PaymentMethodRepository
	state      *StateManager
	httpClient *http.Client
	now        func() time.Time
}

func NewBot(
	cfg config.Config,
	api *tgbotapi.BotAPI,
	log *slog.Logger,
	users *service.UserService,
	plans *service.PlanService,
	promo *service.PromoService,
	payments *service.PaymentService,
	manual *service.ManualPaymentService,
	methods *repository.PaymentMethodRepository,
) *Bot {
	return &Bot{
		cfg:        cfg,
		api:        api,
		log:        log,
		users:      users,
		plans:      plans,
		promo:      promo,
		payments:   payments,
		manual:     manual,
		methods:    methods,
		state:      NewStateManager(cfg.SessionTTL),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	go b.state.RunJanitor(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			} else if update.PreCheckoutQuery != nil {
				if err := b.payments.HandlePreCheckout(ctx, b.api, update.PreCheckoutQuery); err != nil {
					b.log.Error("pre-checkout failed", "err", err)
				}
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, msg)
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	session := b.state.Get(msg.Chat.ID)
	switch session.State {
	case StateAwaitingPromo:
		b.handlePromoInput(ctx, msg, session)
	case StateAwaitingReceipt:
		b.handleReceiptInput(ctx, msg, session)
	case StateAwaitingFullName:
		b.handleFullNameInput(ctx, msg, session)
	default:
		b.sendText(msg.Chat.ID, "Нажмите /plans, чтобы посмотреть подписки.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.ensureUser(ctx, msg.From, msg.Chat.ID); err != nil {
		b.log.Error("ensure user", "err", err)
		return
	}

	switch msg.Command() {
	case "start":
		b.state.Reset(msg.Chat.ID)
		b.sendText(msg.Chat.ID,
			"Привет! Здесь можно оформить подписку на закрытую группу.\n\n"+
				"Команды:\n/plans — доступные подписки\n/my — мои подписки\n/help — как работает оплата")
		b.showPlans(ctx, msg.Chat.ID)
	case "plans":
		b.state.Reset(msg.Chat.ID)
		b.showPlans(ctx, msg.Chat.ID)
	case "my":
		b.showMySubscriptions(ctx, msg.Chat.ID)
	case "help":
		b.sendText(msg.Chat.ID,
			"Оплата за месяц принимается с 1 по 5 число: целиком или половиной.\n"+
				"Если оплачена половина, вторая часть вносится с 15 по 20 число.\n"+
				"После 20 числа можно оплатить половину месяца — доступ до 5 числа следующего месяца.")
	case "pending":
		if !b.cfg.IsAdmin(msg.From.ID) {
			b.sendText(msg.Chat.ID, "Неизвестная команда. Используйте /plans.")
			return
		}
		b.showPendingPayments(ctx, msg.Chat.ID)
	default:
		b.sendText(msg.Chat.ID, "Неизвестная команда. Используйте /plans.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	parsed, err := ParseCallback(cb.Data)
	if err != nil {
		b.log.Warn("unparseable callback", "data", cb.Data, "err", err)
		b.ackCallback(cb.ID, "Кнопка устарела")
		return
	}

	if err := b.ensureUser(ctx, cb.From, chatID); err != nil {
		b.log.Error("ensure user callback", "err", err)
		return
	}
	userID := cb.From.ID

	switch parsed.Action {
	case ActionBackToPlans:
		b.ackCallback(cb.ID, "")
		b.state.Reset(chatID)
		b.showPlans(ctx, chatID)
	case ActionMySubs:
		b.ackCallback(cb.ID, "")
		b.showMySubscriptions(ctx, chatID)
	case ActionShowPlan:
		b.ackCallback(cb.ID, "")
		b.showPlan(ctx, chatID, userID, parsed.PlanID)
	case ActionPickOption:
		b.ackCallback(cb.ID, "")
		b.pickOption(ctx, chatID, userID, parsed.PlanID, parsed.Type)
	case ActionEnterPromo:
		b.ackCallback(cb.ID, "")
		session := b.state.Get(chatID)
		if session.Option == nil {
			b.sendText(chatID, "Сессия истекла, начните заново: /plans")
			return
		}
		session.State = StateAwaitingPromo
		b.state.Set(chatID, session)
		b.sendText(chatID, "Введите промокод:")
	case ActionSkipPromo:
		b.ackCallback(cb.ID, "")
		b.showPayMethods(ctx, chatID)
	case ActionPayCard:
		b.ackCallback(cb.ID, "")
		b.sendCardInvoice(ctx, chatID, userID)
	case ActionPayManual:
		b.ackCallback(cb.ID, "")
		b.startManualFlow(ctx, chatID)
	case ActionRenew:
		b.ackCallback(cb.ID, "")
		b.sendRenewalInvoice(ctx, chatID, userID, parsed.PlanID)
	}
}

func (b *Bot) showPlans(ctx context.Context, chatID int64) {
	plans, err := b.plans.ListActive(ctx)
	if err != nil {
		b.log.Error("list plans", "err", err)
		b.sendText(chatID, "Не удалось загрузить подписки, попробуйте позже.")
		return
	}
	if len(plans) == 0 {
		b.sendText(chatID, "Сейчас нет доступных подписок.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(plans)+1)
	for _, p := range plans {
		label := fmt.Sprintf("%s — %s", p.Title, formatPrice(p.PriceMinorUnits, p.Currency))
		data := Callback{Action: ActionShowPlan, PlanID: p.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Мои подписки", Callback{Action: ActionMySubs}.Encode())))

	msg := tgbotapi.NewMessage(chatID, "Доступные подписки:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send plans", "err", err)
	}
}

func (b *Bot) showPlan(ctx context.Context, chatID, userID, planID int64) {
	plan, err := b.plans.GetActive(ctx, planID)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			b.sendText(chatID, "Эта подписка больше не доступна.")
			return
		}
		b.log.Error("get plan", "err", err)
		return
	}

	b.sendPlanMedia(ctx, chatID, plan.ID)

	sub, err := b.users.SubscriptionFor(ctx, userID, plan.ID)
	if err != nil {
		b.log.Error("load subscription", "err", err)
		return
	}
	options := service.ResolveOptions(sub, b.now(), plan.PriceMinorUnits)

	text := fmt.Sprintf("%s\n%s\n\nЦена за месяц: %s",
		plan.Title, plan.Description, formatPrice(plan.PriceMinorUnits, plan.Currency))
	if len(options) == 0 {
		text += "\n\nТекущий месяц уже оплачен полностью."
		b.sendText(chatID, text)
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options)+1)
	for _, opt := range options {
		label := fmt.Sprintf("%s — %s", opt.Title, formatPrice(opt.Price, plan.Currency))
		data := Callback{Action: ActionPickOption, PlanID: plan.ID, Type: opt.Type}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Назад", Callback{Action: ActionBackToPlans}.Encode())))

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send plan", "err", err)
	}
}

func (b *Bot) sendPlanMedia(ctx context.Context, chatID, planID int64) {
	media, err := b.plans.ListMedia(ctx, planID)
	if err != nil {
		b.log.Warn("list plan media", "err", err)
		return
	}
	for _, m := range media {
		var cfg tgbotapi.Chattable
		switch m.MediaType {
		case "photo":
			cfg = tgbotapi.NewPhoto(chatID, tgbotapi.FileID(m.FileID))
		case "video":
			cfg = tgbotapi.NewVideo(chatID, tgbotapi.FileID(m.FileID))
		default:
			continue
		}
		if _, err := b.api.Send(cfg); err != nil {
			b.log.Warn("send plan media", "err", err)
		}
	}
}

func (b *Bot) pickOption(ctx context.Context, chatID, userID, planID int64, pt models.PaymentType) {
	plan, err := b.plans.GetActive(ctx, planID)
	if err != nil {
		b.sendText(chatID, "Эта подписка больше не доступна.")
		return
	}

	// Re-resolve: the button may outlive the window it was rendered in.
	sub, err := b.users.SubscriptionFor(ctx, userID, planID)
	if err != nil {
		b.log.Error("load subscription", "err", err)
		return
	}
	var chosen *service.PaymentOption
	for _, opt := range service.ResolveOptions(sub, b.now(), plan.PriceMinorUnits) {
		if opt.Type == pt {
			o := opt
			chosen = &o
			break
		}
	}
	if chosen == nil {
		b.sendText(chatID, "Этот вариант оплаты уже недоступен. Посмотрите актуальные: /plans")
		return
	}

	session := &Session{
		State:  StateIdle,
		PlanID: planID,
		Option: &sessionOption{
			Type:  chosen.Type,
			Price: chosen.Price,
			Title: chosen.Title,
			Desc:  chosen.Description,
		},
	}
	b.state.Set(chatID, session)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Ввести промокод", Callback{Action: ActionEnterPromo, PlanID: planID}.Encode())),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Продолжить без промокода", Callback{Action: ActionSkipPromo, PlanID: planID}.Encode())),
	)
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s — %s.\nЕсть промокод?",
		chosen.Title, formatPrice(chosen.Price, plan.Currency)))
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send promo prompt", "err", err)
	}
}

func (b *Bot) handlePromoInput(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	code := strings.TrimSpace(msg.Text)
	if code == "" {
		b.sendText(msg.Chat.ID, "Введите промокод текстом или нажмите «Продолжить без промокода».")
		return
	}

	promo, err := b.promo.Validate(ctx, code, msg.From.ID)
	if err != nil {
		b.sendText(msg.Chat.ID, promoErrorText(err))
		if !isPromoError(err) {
			b.log.Error("validate promo", "err", err)
		}
		return
	}

	session.Promo = promo
	session.State = StateIdle
	b.state.Set(msg.Chat.ID, session)

	discounted := service.ApplyDiscount(session.Option.Price, promo)
	b.sendText(msg.Chat.ID, fmt.Sprintf("Промокод применён! К оплате: %s",
		formatPrice(discounted, b.cfg.PaymentCurrency)))
	b.showPayMethods(ctx, msg.Chat.ID)
}

func (b *Bot) showPayMethods(ctx context.Context, chatID int64) {
	session := b.state.Get(chatID)
	if session.Option == nil {
		b.sendText(chatID, "Сессия истекла, начните заново: /plans")
		return
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Оплатить картой", Callback{Action: ActionPayCard, PlanID: session.PlanID}.Encode())),
	}
	manual, err := b.methods.GetManual(ctx)
	if err != nil {
		b.log.Warn("load manual method", "err", err)
	}
	if manual != nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(manual.Name, Callback{Action: ActionPayManual, PlanID: session.PlanID}.Encode())))
	}

	msg := tgbotapi.NewMessage(chatID, "Выберите способ оплаты:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send pay methods", "err", err)
	}
}

func (b *Bot) sendCardInvoice(ctx context.Context, chatID, userID int64) {
	session := b.state.Get(chatID)
	if session.Option == nil {
		b.sendText(chatID, "Сессия истекла, начните заново: /plans")
		return
	}
	plan, err := b.plans.GetActive(ctx, session.PlanID)
	if err != nil {
		b.sendText(chatID, "Эта подписка больше не доступна.")
		return
	}

	option := service.PaymentOption{
		Type:        session.Option.Type,
		Price:       session.Option.Price,
		Title:       session.Option.Title,
		Description: session.Option.Desc,
	}
	if err := b.payments.SendInvoice(ctx, b.api, chatID, userID, plan, option, session.Promo, nil); err != nil {
		b.log.Error("send invoice", "err", err)
		b.sendText(chatID, "Не удалось отправить счёт. Попробуйте позже.")
	}
}

func (b *Bot) sendRenewalInvoice(ctx context.Context, chatID, userID, planID int64) {
	plan, err := b.plans.GetActive(ctx, planID)
	if err != nil {
		b.sendText(chatID, "Эта подписка больше не доступна.")
		return
	}
	sub, err := b.users.SubscriptionFor(ctx, userID, planID)
	if err != nil {
		b.log.Error("load subscription", "err", err)
		return
	}

	option := service.PaymentOption{
		Type:        models.PaymentRenewal,
		Price:       plan.PriceMinorUnits,
		Title:       "Продление подписки",
		Description: "Продление на следующий месяц",
	}
	var anchor *time.Time
	if sub != nil && sub.Active {
		anchor = &sub.EndTs
	}
	if err := b.payments.SendInvoice(ctx, b.api, chatID, userID, plan, option, nil, anchor); err != nil {
		b.log.Error("send renewal invoice", "err", err)
		b.sendText(chatID, "Не удалось отправить счёт. Попробуйте позже.")
	}
}

func (b *Bot) startManualFlow(ctx context.Context, chatID int64) {
	session := b.state.Get(chatID)
	if session.Option == nil {
		b.sendText(chatID, "Сессия истекла, начните заново: /plans")
		return
	}
	manual, err := b.methods.GetManual(ctx)
	if err != nil || manual == nil {
		b.sendText(chatID, "Оплата переводом сейчас недоступна.")
		return
	}

	session.State = StateAwaitingReceipt
	b.state.Set(chatID, session)

	price := service.ApplyDiscount(session.Option.Price, session.Promo)
	b.sendText(chatID, fmt.Sprintf(
		"%s\n\nРеквизиты:\n%s\n\nСумма: %s\n\nПосле перевода пришлите фото или скриншот чека.",
		manual.Description, manual.Details, formatPrice(price, b.cfg.PaymentCurrency)))
}

func (b *Bot) handleReceiptInput(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	var fileID string
	switch {
	case len(msg.Photo) > 0:
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Document != nil:
		if mt := strings.ToLower(msg.Document.MimeType); mt != "" && !strings.HasPrefix(mt, "image/") && mt != "application/pdf" {
			b.sendText(msg.Chat.ID, "Пришлите чек фотографией, скриншотом или PDF.")
			return
		}
		fileID = msg.Document.FileID
	default:
		b.sendText(msg.Chat.ID, "Пришлите чек фотографией или файлом.")
		return
	}

	session.ReceiptFile = fileID
	session.State = StateAwaitingFullName
	b.state.Set(msg.Chat.ID, session)
	b.sendText(msg.Chat.ID, "Укажите фамилию и имя отправителя перевода:")
}

func (b *Bot) handleFullNameInput(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	fullName := strings.TrimSpace(msg.Text)
	if fullName == "" {
		b.sendText(msg.Chat.ID, "Укажите фамилию и имя текстом.")
		return
	}

	plan, err := b.plans.GetByID(ctx, session.PlanID)
	if err != nil || plan == nil {
		b.sendText(msg.Chat.ID, "Эта подписка больше не доступна.")
		b.state.Reset(msg.Chat.ID)
		return
	}

	option := service.PaymentOption{
		Type:  session.Option.Type,
		Price: session.Option.Price,
		Title: session.Option.Title,
	}
	created, err := b.manual.Submit(ctx, service.SubmitManualInput{
		UserID:      msg.From.ID,
		Plan:        plan,
		Option:      option,
		Promo:       session.Promo,
		ReceiptFile: session.ReceiptFile,
		FullName:    fullName,
	})
	if err != nil {
		b.log.Error("submit manual payment", "err", err)
		b.sendText(msg.Chat.ID, "Не удалось отправить чек на проверку, попробуйте позже.")
		return
	}

	b.archiveReceipt(ctx, created.ID, session.ReceiptFile)
	b.notifyAdmins(ctx, created, plan, fullName)
	b.state.Reset(msg.Chat.ID)
	b.sendText(msg.Chat.ID, "Чек отправлен на проверку. Мы сообщим, как только оплата будет подтверждена.")
}

// archiveReceipt downloads the receipt from Telegram and hands it to the S3
// archive. Best-effort.
func (b *Bot) archiveReceipt(ctx context.Context, paymentID int64, fileID string) {
	data, contentType, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.Warn("download receipt", "err", err)
		return
	}
	b.manual.ArchiveReceipt(ctx, paymentID, bytes.NewReader(data), contentType)
}

func (b *Bot) notifyAdmins(ctx context.Context, mp *models.ManualPayment, plan *models.Plan, fullName string) {
	text := fmt.Sprintf(
		"Новый чек на проверку #%d\nПодписка: %s\nВариант: %s\nСумма: %s\nОтправитель: %s",
		mp.ID, plan.Title, string(mp.PaymentType),
		formatPrice(mp.AmountMinorUnits, plan.Currency), fullName)
	for _, adminID := range b.cfg.AdminIDs {
		photo := tgbotapi.NewPhoto(adminID, tgbotapi.FileID(mp.ReceiptFileID))
		photo.Caption = text
		if _, err := b.api.Send(photo); err != nil {
			// The receipt may be a document rather than a photo.
			doc := tgbotapi.NewDocument(adminID, tgbotapi.FileID(mp.ReceiptFileID))
			doc.Caption = text
			if _, err := b.api.Send(doc); err != nil {
				b.log.Warn("notify admin", "admin_id", adminID, "err", err)
			}
		}
	}
}

// showPendingPayments lists unreviewed manual payments for an admin.
func (b *Bot) showPendingPayments(ctx context.Context, chatID int64) {
	pending, err := b.manual.ListPending(ctx)
	if err != nil {
		b.log.Error("list pending payments", "err", err)
		b.sendText(chatID, "Не удалось загрузить платежи на проверке.")
		return
	}
	if len(pending) == 0 {
		b.sendText(chatID, "Платежей на проверке нет.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Платежи на проверке:\n")
	for _, mp := range pending {
		payer := fmt.Sprintf("id %d", mp.UserID)
		if user, err := b.users.Profile(ctx, mp.UserID); err != nil {
			b.log.Warn("load payer profile", "user_id", mp.UserID, "err", err)
		} else if user != nil && user.Username != "" {
			payer = "@" + user.Username
		}
		planTitle := fmt.Sprintf("план %d", mp.PlanID)
		if plan, err := b.plans.GetByID(ctx, mp.PlanID); err == nil && plan != nil {
			planTitle = plan.Title
		}
		fmt.Fprintf(&sb, "\n#%d — %s, %s, %s, от %s (%s)",
			mp.ID, planTitle, string(mp.PaymentType),
			formatPrice(mp.AmountMinorUnits, b.cfg.PaymentCurrency),
			payer, mp.CreatedAt.Format("02.01.2006 15:04"))
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	result, err := b.payments.HandleSuccessfulPayment(ctx, msg.SuccessfulPayment)
	if err != nil {
		b.log.Error("process successful payment", "err", err)
		if service.IsRejectable(err) {
			b.sendText(msg.Chat.ID, "Платёж получен, но его не удалось обработать. Напишите администратору.")
		} else {
			b.sendText(msg.Chat.ID, "Платёж получен, доступ будет выдан в ближайшее время.")
		}
		return
	}
	b.state.Reset(msg.Chat.ID)
	b.sendText(msg.Chat.ID, fmt.Sprintf(
		"Оплата прошла успешно! Ваша ссылка для вступления (действует %d ч., одно использование):\n%s",
		int(b.cfg.InviteTTL.Hours()), result.InviteLink))
}

func (b *Bot) showMySubscriptions(ctx context.Context, chatID int64) {
	subs, err := b.users.ActiveSubscriptions(ctx, chatID)
	if err != nil {
		b.log.Error("list subscriptions", "err", err)
		return
	}
	if len(subs) == 0 {
		b.sendText(chatID, "У вас нет активных подписок. Посмотрите доступные: /plans")
		return
	}

	var sb strings.Builder
	sb.WriteString("Ваши подписки:\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(subs))
	for _, sub := range subs {
		plan, err := b.plans.GetByID(ctx, sub.PlanID)
		if err != nil || plan == nil {
			continue
		}
		status := "оплачено полностью"
		if sub.PartPaid == models.PartPaidFirst {
			status = "оплачена первая половина"
		}
		fmt.Fprintf(&sb, "\n%s — %s, доступ до %s", plan.Title, status, sub.EndTs.Format("02.01.2006"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Продлить «%s»", plan.Title),
				Callback{Action: ActionRenew, PlanID: plan.ID}.Encode())))
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send subscriptions", "err", err)
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, "", fmt.Errorf("file path empty")
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.api.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("telegram file status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file body: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return body, ct, nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User, chatID int64) error {
	telegramID := chatID
	username := ""
	if from != nil {
		telegramID = from.ID
		username = from.UserName
	}
	return b.users.Ensure(ctx, telegramID, username)
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

func (b *Bot) ackCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Error("callback ack", "err", err)
	}
}

func formatPrice(minorUnits int, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minorUnits)/100, currency)
}

func isPromoError(err error) bool {
	return errors.Is(err, service.ErrPromoNotFound) ||
		errors.Is(err, service.ErrPromoInactive) ||
		errors.Is(err, service.ErrPromoExhausted) ||
		errors.Is(err, service.ErrPromoExpired) ||
		errors.Is(err, service.ErrPromoAlreadyUsed)
}

func promoErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrPromoAlreadyUsed):
		return "Этот промокод уже использован."
	case errors.Is(err, service.ErrPromoNotFound):
		return "Промокод не найден."
	case errors.Is(err, service.ErrPromoInactive):
		return "Промокод отключён."
	case errors.Is(err, service.ErrPromoExhausted):
		return "Лимит использований промокода исчерпан."
	case errors.Is(err, service.ErrPromoExpired):
		return "Срок действия промокода истёк."
	default:
		return "Не удалось проверить промокод, попробуйте позже."
	}
}
