package model

// LateFeeRules configures optional late fees on overdue installments.
// Zero values disable the rule.
type LateFeeRules struct {
	GraceDays int     `json:"graceDays,omitempty"`
	DailyFine float64 `json:"dailyFine,omitempty"`
	FlatFee   float64 `json:"flatFee,omitempty"`
}

// WhatsappConfig drives reminder and receipt message construction.
// Templates use {member}, {group}, {month}, {amount}, {balance} and {link}
// placeholders.
type WhatsappConfig struct {
	CountryCode      string `json:"countryCode,omitempty"` // e.g. "91"
	ReminderTemplate string `json:"reminderTemplate,omitempty"`
	ReceiptTemplate  string `json:"receiptTemplate,omitempty"`
}

// MasterSettings is the singleton configuration record stored inside the
// snapshot. The auth-gate collaborator compares entered credentials against
// MastersPasswordHash; the ledger itself never authenticates.
type MasterSettings struct {
	MastersPasswordHash   string         `json:"mastersPasswordHash"`
	LateFeeRules          LateFeeRules   `json:"lateFeeRules"`
	ReceiptTemplateConfig map[string]string `json:"receiptTemplateConfig,omitempty"`
	AppURL                string         `json:"appUrl,omitempty"`
	WhatsappConfig        WhatsappConfig `json:"whatsappConfig"`
}

// DefaultMasterSettings is the built-in fallback used when a snapshot has no
// settings or fails to decode.
func DefaultMasterSettings() MasterSettings {
	return MasterSettings{
		WhatsappConfig: WhatsappConfig{
			CountryCode:      "91",
			ReminderTemplate: "Hi {member}, your installment of Rs.{balance} for {group} (month {month}) is due. Pay here: {link}",
			ReceiptTemplate:  "Hi {member}, we received Rs.{amount} towards {group} month {month}. Thank you!",
		},
	}
}

// SettingsUpdate carries partial settings changes. Nil fields are left
// untouched.
type SettingsUpdate struct {
	MastersPasswordHash *string
	LateFeeRules        *LateFeeRules
	AppURL              *string
	WhatsappConfig      *WhatsappConfig
}
