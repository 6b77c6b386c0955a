// Package models provides data structures used throughout campaignqa.
package models

import (
	"strings"
	"time"
)

// CampaignTable is the name the dataset is loaded under.
const CampaignTable = "email_campaigns"

// Campaign dataset columns.
const (
	ColumnSendDate           = "send_date"
	ColumnTemplateID         = "template_id"
	ColumnSubjectLine        = "subject_line"
	ColumnPreHeaderText      = "pre_header_text"
	ColumnEmailBody          = "email_body"
	ColumnEmailsSent         = "emails_sent"
	ColumnEmailsUnsubscribed = "emails_unsubscribed"
	ColumnEmailsClicked      = "emails_clicked"
	ColumnEmailsOpened       = "emails_opened"
	ColumnSenderInfo         = "sender_info"
)

// CampaignColumns lists the required dataset columns in prompt order.
var CampaignColumns = []string{
	ColumnSendDate,
	ColumnTemplateID,
	ColumnSubjectLine,
	ColumnPreHeaderText,
	ColumnEmailBody,
	ColumnEmailsSent,
	ColumnEmailsUnsubscribed,
	ColumnEmailsClicked,
	ColumnEmailsOpened,
	ColumnSenderInfo,
}

// Column describes a column of the loaded table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Dataset describes the table loaded at startup.
type Dataset struct {
	Table    string        `json:"table"`
	Path     string        `json:"path"`
	Engine   string        `json:"engine"`
	Rows     int64         `json:"rows"`
	Columns  []Column      `json:"columns"`
	LoadedAt time.Time     `json:"loaded_at"`
	LoadTime time.Duration `json:"load_time"`
}

// MissingColumns returns the required columns absent from cols.
// Matching is case-insensitive.
func MissingColumns(cols []Column) []string {
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c.Name)] = true
	}

	var missing []string
	for _, name := range CampaignColumns {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
