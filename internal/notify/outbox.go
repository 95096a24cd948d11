package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bhadrakali/chit-ledger/internal/ledger"
	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/internal/queue"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
	"github.com/bhadrakali/chit-ledger/pkg/prom"
	"github.com/bhadrakali/chit-ledger/pkg/redis"
)

// Directory is the ledger read surface the outbox composes messages from.
// *ledger.Ledger satisfies it.
type Directory interface {
	Chits() []model.ChitGroup
	Members() []model.Member
	Memberships() []model.GroupMembership
	InstallmentStatusFor(groupID, memberID string, monthNo int) ledger.InstallmentStatus
	Settings() model.MasterSettings
}

// OutboxConfig tunes deduplication. DedupTTL bounds how often the same
// (group, member, month) reminder can go out.
type OutboxConfig struct {
	DedupTTL time.Duration
}

// Outbox composes WhatsApp texts from ledger state and publishes them to
// the reminder stream. Receipts skip dedup; reminders are deduplicated with
// a SetNX marker so a double trigger cannot double-send.
type Outbox struct {
	dir    Directory
	queue  *queue.Queue
	dedup  redis.RedisAdapter
	config OutboxConfig
}

func NewOutbox(dir Directory, q *queue.Queue, dedup redis.RedisAdapter, config OutboxConfig) *Outbox {
	if config.DedupTTL == 0 {
		config.DedupTTL = 20 * time.Hour
	}
	return &Outbox{dir: dir, queue: q, dedup: dedup, config: config}
}

// PaymentRecorded queues a receipt for the payment. Fire-and-forget by
// contract: failures are logged, never surfaced to the mutation path.
func (o *Outbox) PaymentRecorded(p model.Payment) {
	msg, ok := o.composeReceipt(p)
	if !ok {
		return
	}
	if _, err := o.queue.PublishJSON(context.Background(), msg, map[string]string{"kind": string(KindReceipt)}); err != nil {
		logger.Warn("failed to queue receipt", "paymentId", p.PaymentID, "error", err)
		prom.IncNotifyMessage(string(KindReceipt), "queue_failed")
		return
	}
	prom.IncNotifyMessage(string(KindReceipt), "queued")
}

// SendReminders queues one reminder per unsettled member of the group for
// the month. Returns how many were queued; already-sent and fully-paid
// members are skipped.
func (o *Outbox) SendReminders(ctx context.Context, groupID string, monthNo int) (int, error) {
	g, ok := o.chit(groupID)
	if !ok {
		return 0, ledger.ErrGroupNotFound
	}

	settings := o.dir.Settings()
	members := o.memberIndex()
	queued := 0
	for _, ms := range o.dir.Memberships() {
		if ms.ChitGroupID != groupID {
			continue
		}
		m, ok := members[ms.MemberID]
		if !ok || !m.IsActive {
			continue
		}
		st := o.dir.InstallmentStatusFor(groupID, ms.MemberID, monthNo)
		if st.Status == model.PaymentStatusPaid {
			continue
		}

		fresh, err := o.markSent(groupID, ms.MemberID, monthNo)
		if err != nil {
			logger.Warn("reminder dedup check failed, sending anyway", "memberId", ms.MemberID, "error", err)
		} else if !fresh {
			prom.IncNotifyMessage(string(KindReminder), "deduplicated")
			continue
		}

		msg := o.composeReminder(g, m, monthNo, st, settings)
		if _, err := o.queue.PublishJSON(ctx, msg, map[string]string{"kind": string(KindReminder)}); err != nil {
			prom.IncNotifyMessage(string(KindReminder), "queue_failed")
			return queued, err
		}
		prom.IncNotifyMessage(string(KindReminder), "queued")
		queued++
	}
	return queued, nil
}

// markSent is the SetNX dedup gate. True means this caller won the send.
func (o *Outbox) markSent(groupID, memberID string, monthNo int) (bool, error) {
	if o.dedup == nil {
		return true, nil
	}
	key := fmt.Sprintf("reminder:%s:%s:%d", groupID, memberID, monthNo)
	return o.dedup.SetNX(key, []byte(strconv.FormatInt(time.Now().Unix(), 10)), o.config.DedupTTL)
}

func (o *Outbox) composeReminder(g model.ChitGroup, m model.Member, monthNo int, st ledger.InstallmentStatus, settings model.MasterSettings) OutboundMessage {
	balance := st.Balance
	link := paymentLink(g, settings, balance, monthNo)
	text := renderTemplate(settings.WhatsappConfig.ReminderTemplate, map[string]string{
		"member":  m.Name,
		"group":   g.Name,
		"month":   strconv.Itoa(monthNo),
		"amount":  formatAmount(st.Due),
		"balance": formatAmount(balance),
		"link":    link,
	})
	return OutboundMessage{
		Kind:        KindReminder,
		ChitGroupID: g.ChitGroupID,
		MemberID:    m.MemberID,
		MonthNo:     monthNo,
		Mobile:      m.Mobile,
		Text:        text,
		WaLink:      WhatsAppLink(settings.WhatsappConfig.CountryCode, m.Mobile, text),
	}
}

func (o *Outbox) composeReceipt(p model.Payment) (OutboundMessage, bool) {
	g, ok := o.chit(p.ChitGroupID)
	if !ok {
		return OutboundMessage{}, false
	}
	m, ok := o.memberIndex()[p.MemberID]
	if !ok {
		return OutboundMessage{}, false
	}

	settings := o.dir.Settings()
	st := o.dir.InstallmentStatusFor(p.ChitGroupID, p.MemberID, p.MonthNo)
	text := renderTemplate(settings.WhatsappConfig.ReceiptTemplate, map[string]string{
		"member":  m.Name,
		"group":   g.Name,
		"month":   strconv.Itoa(p.MonthNo),
		"amount":  formatAmount(p.PaidAmount),
		"balance": formatAmount(st.Balance),
		"link":    settings.AppURL,
	})
	return OutboundMessage{
		Kind:        KindReceipt,
		ChitGroupID: p.ChitGroupID,
		MemberID:    p.MemberID,
		MonthNo:     p.MonthNo,
		Mobile:      m.Mobile,
		Text:        text,
		WaLink:      WhatsAppLink(settings.WhatsappConfig.CountryCode, m.Mobile, text),
	}, true
}

func (o *Outbox) chit(groupID string) (model.ChitGroup, bool) {
	for _, g := range o.dir.Chits() {
		if g.ChitGroupID == groupID {
			return g, true
		}
	}
	return model.ChitGroup{}, false
}

func (o *Outbox) memberIndex() map[string]model.Member {
	idx := make(map[string]model.Member)
	for _, m := range o.dir.Members() {
		idx[m.MemberID] = m
	}
	return idx
}
