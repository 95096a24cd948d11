package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bhadrakali/chit-ledger/internal/model"
)

// Kind distinguishes outbound message types on the wire and in metrics.
type Kind string

const (
	KindReminder Kind = "reminder"
	KindReceipt  Kind = "receipt"
)

// OutboundMessage is the outbox payload: everything a sender needs to
// deliver one WhatsApp text.
type OutboundMessage struct {
	Kind        Kind   `json:"kind"`
	ChitGroupID string `json:"chitGroupId"`
	MemberID    string `json:"memberId"`
	MonthNo     int    `json:"monthNo"`
	Mobile      string `json:"mobile"`
	Text        string `json:"text"`
	WaLink      string `json:"waLink"`
}

// renderTemplate fills the {member} {group} {month} {amount} {balance}
// {link} placeholders.
func renderTemplate(tmpl string, vals map[string]string) string {
	out := tmpl
	for k, v := range vals {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// UPILink builds a upi://pay deep link for the group's collection VPA.
func UPILink(upiID, payeeName string, amount float64, note string) string {
	if upiID == "" {
		return ""
	}
	q := url.Values{}
	q.Set("pa", upiID)
	q.Set("pn", payeeName)
	if amount > 0 {
		q.Set("am", formatAmount(amount))
	}
	q.Set("cu", "INR")
	if note != "" {
		q.Set("tn", note)
	}
	return "upi://pay?" + q.Encode()
}

// WhatsAppLink builds a wa.me link carrying the prefilled text. A bare
// 10-digit mobile gets the configured country code prepended.
func WhatsAppLink(countryCode, mobile, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, mobile)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 && countryCode != "" {
		digits = countryCode + digits
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(text))
}

func paymentLink(g model.ChitGroup, settings model.MasterSettings, balance float64, monthNo int) string {
	if g.UpiID != "" {
		return UPILink(g.UpiID, g.Name, balance, fmt.Sprintf("Month %d", monthNo))
	}
	return settings.AppURL
}
