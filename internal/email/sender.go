// Package email renders and delivers outbound mail.
package email

import (
	"context"
	"fmt"
	"strings"

	"ipkwealth_backend/platform/config"
)

// LeadAssigned is the content of an assignment notice to an RM.
type LeadAssigned struct {
	RMName     string
	LeadName   string
	LeadCode   string
	LeadSource string
	Phone      string
	Reassigned bool
}

type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssigned) error
}

type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadAssigned) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when SMTP is not configured.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetSMTPFromAddress(), cfg.GetSMTPFromName())
}

func renderLeadAssigned(data LeadAssigned) (subject, html string, err error) {
	leadName := strings.TrimSpace(data.LeadName)
	if leadName == "" {
		leadName = data.LeadCode
	}
	html, err = renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Lead assigned",
			Heading: "Lead assigned",
		},
		RMName:     data.RMName,
		LeadName:   leadName,
		LeadCode:   data.LeadCode,
		LeadSource: data.LeadSource,
		Phone:      data.Phone,
		Reassigned: data.Reassigned,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectLeadAssignedFmt, data.LeadCode), html, nil
}
