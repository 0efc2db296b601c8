package email

import (
	"strings"
	"testing"
)

func TestRenderLeadAssigned(t *testing.T) {
	subject, html, err := renderLeadAssigned(LeadAssigned{
		RMName:     "Meera",
		LeadName:   "Asha <Rao>",
		LeadCode:   "IPK25030001",
		LeadSource: "website",
		Phone:      "+91 98765 43210",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "New lead assigned: IPK25030001" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Hi Meera", "IPK25030001", "Asha &lt;Rao&gt;", "&#43;91 98765 43210", "A new lead has been assigned"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in body:\n%s", want, html)
		}
	}
}

func TestRenderLeadAssignedFallsBackToCode(t *testing.T) {
	_, html, err := renderLeadAssigned(LeadAssigned{RMName: "Meera", LeadCode: "IPK25030002", Reassigned: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "moved to you") || strings.Contains(html, "Source") {
		t.Fatalf("unexpected body:\n%s", html)
	}
}
