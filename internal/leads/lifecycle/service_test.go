package lifecycle

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/assignment"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/internal/leads/memstore"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"

	"github.com/google/uuid"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type harness struct {
	svc      *Service
	store    *memstore.Store
	counters *sequence.MemoryStore
	bus      *events.InMemoryBus
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Discard()
	h := &harness{
		store:    memstore.New(),
		counters: sequence.NewMemoryStore(),
		bus:      events.NewInMemoryBus(log),
		now:      t0,
	}
	clock := func() time.Time { return h.now }
	alloc := sequence.New(h.counters, log)
	h.svc = New(Deps{
		Repo:     h.store,
		Assigner: assignment.NewRoundRobin(h.store, alloc, clock, log),
		Counter:  alloc,
		Journal:  journal.New(h.store, nil, clock, nil, log),
		Bus:      h.bus,
		Log:      log,
		Clock:    clock,
	})
	return h
}

func (h *harness) addRM(name string, created time.Time) domain.User {
	u := domain.User{ID: uuid.New(), Name: name, Role: domain.RoleRM, Status: domain.UserStatusActive, CreatedAt: created}
	h.store.PutUser(u)
	return u
}

func (h *harness) intake(t *testing.T, in domain.LeadInput) IntakeResult {
	t.Helper()
	res, err := h.svc.CreatePendingLead(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("create pending lead: %v", err)
	}
	return res
}

func (h *harness) events(t *testing.T, leadID uuid.UUID) []domain.LeadEvent {
	t.Helper()
	evs, err := h.store.ListEvents(context.Background(), leadID, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return evs
}

func strPtr(s string) *string { return &s }

func TestCreatePendingLeadMergesReentry(t *testing.T) {
	h := newHarness(t)

	first := h.intake(t, domain.LeadInput{Phone: "+91 98765-43210", LeadSource: "website", Name: strPtr("Asha"), Email: strPtr("asha@example.com")})
	if first.Merged || first.Lead.ReenterCount != 0 {
		t.Fatalf("expected a new lead, got %+v", first)
	}
	if first.Lead.Status != domain.LeadStatusOpen || first.Lead.FirstSeenAt == nil || !first.Lead.FirstSeenAt.Equal(t0) {
		t.Fatalf("unexpected new lead state %+v", first.Lead)
	}

	h.now = t0.Add(48 * time.Hour)
	second := h.intake(t, domain.LeadInput{Phone: "919876543210", LeadSource: "referral", Location: strPtr("Pune"), Email: strPtr("  ")})
	if !second.Merged || second.Lead.ID != first.Lead.ID {
		t.Fatalf("expected merge into %s, got %+v", first.Lead.ID, second)
	}
	if second.Lead.ReenterCount != 1 {
		t.Fatalf("expected reenterCount 1, got %d", second.Lead.ReenterCount)
	}
	if second.Lead.Email == nil || *second.Lead.Email != "asha@example.com" {
		t.Fatalf("email should survive a re-entry that omits it, got %v", second.Lead.Email)
	}
	if second.Lead.Location == nil || *second.Lead.Location != "Pune" {
		t.Fatal("location from the re-entry should be filled in")
	}
	if second.Lead.LeadSource != "website" {
		t.Fatalf("leadSource must not change on re-entry, got %s", second.Lead.LeadSource)
	}
	if !second.Lead.LastSeenAt.Equal(h.now) || !second.Lead.FirstSeenAt.Equal(t0) {
		t.Fatal("re-entry should move lastSeenAt only")
	}

	evs := h.events(t, first.Lead.ID)
	if len(evs) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(evs))
	}
	latest := evs[0]
	if latest.Type != domain.EventHistorySnapshot || latest.Tags[0] != domain.TagReentry {
		t.Fatalf("unexpected re-entry event %+v", latest)
	}
	next, ok := latest.Next.(domain.IntakeSnapshot)
	if !ok || next.ReenterCount != 1 {
		t.Fatalf("expected intake snapshot with reenterCount 1, got %#v", latest.Next)
	}
}

func TestReentryReopensClosedAndArchivedLead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead

	if _, err := h.svc.UpdateStatus(ctx, lead.ID, domain.LeadStatusClosed, nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := h.svc.Archive(ctx, lead.ID, true, nil); err != nil {
		t.Fatalf("archive: %v", err)
	}

	merged := h.intake(t, domain.LeadInput{Phone: "98765 43210", LeadSource: "web"}).Lead
	if merged.Status != domain.LeadStatusOpen || merged.Archived {
		t.Fatalf("expected OPEN and unarchived, got %s archived=%v", merged.Status, merged.Archived)
	}
}

func TestReentryKeepsOnHoldStatus(t *testing.T) {
	h := newHarness(t)
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead
	if _, err := h.svc.UpdateStatus(context.Background(), lead.ID, domain.LeadStatusOnHold, nil); err != nil {
		t.Fatalf("hold: %v", err)
	}

	merged := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web"}).Lead
	if merged.Status != domain.LeadStatusOnHold {
		t.Fatalf("only CLOSED leads reopen, got %s", merged.Status)
	}
}

func TestCreatePendingLeadRejectsPhoneWithoutDigits(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreatePendingLead(context.Background(), domain.LeadInput{Phone: "n/a", LeadSource: "web"}, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, total, _ := h.store.ListLeads(context.Background(), domain.LeadFilter{}.Normalize())
	if total != 0 {
		t.Fatalf("nothing should be written, found %d leads", total)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rm := h.addRM("Ravi", t0.Add(-time.Hour))
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead

	first, err := h.svc.Assign(ctx, lead.ID, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	second, err := h.svc.Assign(ctx, lead.ID, nil)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}

	if first.LeadCode == nil || *first.LeadCode != "IPK25030001" {
		t.Fatalf("unexpected lead code %v", first.LeadCode)
	}
	if *second.LeadCode != *first.LeadCode || *second.AssignedRmID != rm.ID || first.Status != domain.LeadStatusAssigned {
		t.Fatalf("second assign changed the lead: %+v", second)
	}
	if got := h.counters.Value("lead_seq_2503"); got != 1 {
		t.Fatalf("expected one lead-code slot consumed, got %d", got)
	}

	assignments := 0
	for _, e := range h.events(t, lead.ID) {
		if e.Type == domain.EventAssignment {
			assignments++
			if e.Text != "Assigned to Ravi" {
				t.Errorf("unexpected text %q", e.Text)
			}
		}
	}
	if assignments != 1 {
		t.Fatalf("expected one assignment event, got %d", assignments)
	}
}

func TestAssignRotatesAcrossRMs(t *testing.T) {
	h := newHarness(t)
	h.addRM("C", t0.Add(-1*time.Hour))
	h.addRM("A", t0.Add(-3*time.Hour))
	h.addRM("B", t0.Add(-2*time.Hour))

	var got []string
	for i := 0; i < 4; i++ {
		lead := h.intake(t, domain.LeadInput{Phone: "90000000" + string(rune('0'+i)) + "1", LeadSource: "web", Name: strPtr("L")}).Lead
		assigned, err := h.svc.Assign(context.Background(), lead.ID, nil)
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		got = append(got, *assigned.AssignedRmName)
	}
	if strings.Join(got, ",") != "A,B,C,A" {
		t.Fatalf("expected A,B,C,A got %v", got)
	}
}

func TestAssignWithoutRMs(t *testing.T) {
	h := newHarness(t)
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead

	_, err := h.svc.Assign(context.Background(), lead.ID, nil)
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if h.counters.Value("lead_seq_2503") != 0 {
		t.Fatal("no lead code should be reserved without an RM")
	}
}

func TestAssignClosedLeadIsRejected(t *testing.T) {
	h := newHarness(t)
	h.addRM("Ravi", t0)
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead
	if _, err := h.svc.UpdateStatus(context.Background(), lead.ID, domain.LeadStatusClosed, nil); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := h.svc.Assign(context.Background(), lead.ID, nil); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAssignPublishesLeadAssigned(t *testing.T) {
	h := newHarness(t)
	rm := h.addRM("Ravi", t0)
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead

	var mu sync.Mutex
	var seen []events.LeadAssigned
	h.bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.(events.LeadAssigned))
		return nil
	}))

	if _, err := h.svc.Assign(context.Background(), lead.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	h.bus.Wait()

	if len(seen) != 1 || seen[0].RmID != rm.ID || seen[0].LeadCode != "IPK25030001" {
		t.Fatalf("unexpected published events %+v", seen)
	}
}

func TestAssignManySkipsFailures(t *testing.T) {
	h := newHarness(t)
	h.addRM("A", t0.Add(-2*time.Hour))
	h.addRM("B", t0.Add(-time.Hour))

	ids := make([]uuid.UUID, 0, 6)
	for i := 0; i < 5; i++ {
		lead := h.intake(t, domain.LeadInput{Phone: "8000000" + string(rune('0'+i)) + "00", LeadSource: "web", Name: strPtr("L")}).Lead
		ids = append(ids, lead.ID)
	}
	ids = append(ids, uuid.New())

	assigned, err := h.svc.AssignMany(context.Background(), ids, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assigned) != 5 {
		t.Fatalf("expected 5 assigned leads, got %d", len(assigned))
	}

	codes := map[string]bool{}
	for i, lead := range assigned {
		if lead.ID != ids[i] {
			t.Fatalf("results should follow input order")
		}
		codes[*lead.LeadCode] = true
	}
	if len(codes) != 5 || h.counters.Value("lead_seq_2503") != 5 {
		t.Fatalf("expected 5 distinct codes, got %v", codes)
	}
}

func TestDormantFilterIncludesReentries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}
	h.intake(t, in)
	h.intake(t, in)
	reentered := h.intake(t, in).Lead
	fresh := h.intake(t, domain.LeadInput{Phone: "9123456789", LeadSource: "web", Name: strPtr("Dev")}).Lead

	if reentered.ReenterCount != 2 {
		t.Fatalf("expected reenterCount 2, got %d", reentered.ReenterCount)
	}

	for _, days := range []int{0, 30} {
		page, err := h.svc.ListLeads(ctx, domain.LeadFilter{DormantOnly: true, DormantDays: days})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 1 || page.Items[0].ID != reentered.ID {
			t.Fatalf("dormantDays=%d: expected only the re-entered lead, got %+v", days, page.Items)
		}
	}

	h.now = t0.Add(31 * 24 * time.Hour)
	page, err := h.svc.ListLeads(ctx, domain.LeadFilter{DormantOnly: true, DormantDays: 30})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected the stale lead %s to join, got %d", fresh.ID, page.Total)
	}
}

func TestListLeadsSearch(t *testing.T) {
	h := newHarness(t)
	h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "Website", Name: strPtr("Asha Rao")})
	h.intake(t, domain.LeadInput{Phone: "9123456789", LeadSource: "referral", Name: strPtr("Dev")})

	page, err := h.svc.ListLeads(context.Background(), domain.LeadFilter{Search: "asha"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Page != 1 || page.PageSize != domain.DefaultPageSize {
		t.Fatalf("unexpected page %+v", page)
	}
}

// mutation runs fn and checks it appended exactly one journal entry.
func mutation(t *testing.T, h *harness, leadID uuid.UUID, name string, fn func() error) domain.LeadEvent {
	t.Helper()
	before := len(h.events(t, leadID))
	if err := fn(); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	evs := h.events(t, leadID)
	if len(evs) != before+1 {
		t.Fatalf("%s: expected exactly one new event, got %d", name, len(evs)-before)
	}
	return evs[0]
}

func TestEveryMutationRecordsOneEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addRM("Ravi", t0.Add(-time.Hour))
	other := h.addRM("Meera", t0)
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead
	id := lead.ID

	ev := mutation(t, h, id, "status", func() error {
		_, err := h.svc.UpdateStatus(ctx, id, domain.LeadStatusPending, nil)
		return err
	})
	if ev.Text != "Status: OPEN -> PENDING" || ev.Next.(domain.StatusSnapshot).Status != domain.LeadStatusPending {
		t.Fatalf("unexpected status event %+v", ev)
	}

	ev = mutation(t, h, id, "remark", func() error {
		_, err := h.svc.UpdateRemark(ctx, id, strPtr("call after 6pm"), nil)
		return err
	})
	if r := ev.Next.(domain.RemarkSnapshot).Remark; r == nil || *r != "call after 6pm" {
		t.Fatalf("unexpected remark snapshot %+v", ev.Next)
	}

	ev = mutation(t, h, id, "bio", func() error {
		_, err := h.svc.UpdateBio(ctx, id, strPtr("salaried"), nil)
		return err
	})
	if ev.Type != domain.EventBioUpdated || ev.Prev.(domain.BioSnapshot).BioText != nil {
		t.Fatalf("unexpected bio event %+v", ev)
	}

	ev = mutation(t, h, id, "client qa", func() error {
		_, err := h.svc.UpdateClientQA(ctx, id, []domain.QAItem{{Question: "Goal?", Answer: "Retirement"}, {}}, nil)
		return err
	})
	if qa := ev.Next.(domain.ClientQASnapshot).ClientQA; len(qa) != 1 || qa[0].Answer != "Retirement" {
		t.Fatalf("unexpected qa snapshot %+v", ev.Next)
	}

	stage := domain.ClientStageContacted
	ev = mutation(t, h, id, "stage", func() error {
		_, err := h.svc.ChangeStage(ctx, ChangeStageInput{LeadID: id, Stage: stage}, nil)
		return err
	})
	if s := ev.Next.(domain.StageSnapshot); s.ClientStage == nil || *s.ClientStage != stage {
		t.Fatalf("unexpected stage snapshot %+v", ev.Next)
	}

	ev = mutation(t, h, id, "assign", func() error {
		_, err := h.svc.Assign(ctx, id, nil)
		return err
	})
	if a := ev.Next.(domain.AssignmentSnapshot); a.LeadCode == nil || a.Status != domain.LeadStatusAssigned {
		t.Fatalf("unexpected assignment snapshot %+v", ev.Next)
	}

	ev = mutation(t, h, id, "reassign", func() error {
		_, err := h.svc.Reassign(ctx, id, other.ID, nil)
		return err
	})
	if a := ev.Next.(domain.AssignmentSnapshot); *a.AssignedRmID != other.ID || *a.AssignedRmName != "Meera" {
		t.Fatalf("unexpected reassignment snapshot %+v", ev.Next)
	}

	var added domain.LeadPhone
	ev = mutation(t, h, id, "add phone", func() error {
		var err error
		added, err = h.svc.AddPhone(ctx, id, domain.NewPhone{Label: domain.PhoneLabelWork, Number: "91234 56789"}, nil)
		return err
	})
	if ev.Type != domain.EventPhoneAdded || !ev.Next.(domain.PhoneSnapshot).IsPrimary {
		t.Fatalf("first phone should be primary, got %+v", ev.Next)
	}

	second, err := h.svc.AddPhone(ctx, id, domain.NewPhone{Label: domain.PhoneLabelHome, Number: "9000012345"}, nil)
	if err != nil {
		t.Fatalf("add second phone: %v", err)
	}
	ev = mutation(t, h, id, "mark primary", func() error {
		_, err := h.svc.MarkPrimaryPhone(ctx, second.ID, nil)
		return err
	})
	if !ev.Next.(domain.PhoneSnapshot).IsPrimary || ev.Prev.(domain.PhoneSnapshot).IsPrimary {
		t.Fatalf("unexpected primary snapshots %+v -> %+v", ev.Prev, ev.Next)
	}

	ev = mutation(t, h, id, "whatsapp", func() error {
		_, err := h.svc.SetWhatsapp(ctx, added.ID, true, nil)
		return err
	})
	if ev.Tags[0] != domain.TagWhatsApp || !ev.Next.(domain.PhoneSnapshot).IsWhatsapp {
		t.Fatalf("unexpected whatsapp event %+v", ev)
	}

	ev = mutation(t, h, id, "remove phone", func() error {
		phones, err := h.svc.RemovePhone(ctx, second.ID, nil)
		if err == nil && (len(phones) != 1 || !phones[0].IsPrimary) {
			t.Errorf("remaining phone should be promoted, got %+v", phones)
		}
		return err
	})
	if ev.Type != domain.EventPhoneRemoved || ev.Next != nil {
		t.Fatalf("unexpected removal event %+v", ev)
	}
}

func TestChangeStageWithNote(t *testing.T) {
	h := newHarness(t)
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead
	before := len(h.events(t, lead.ID))

	explained := true
	channel := domain.ChannelCall
	followUp := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	h.now = t0.Add(time.Hour)
	updated, err := h.svc.ChangeStage(context.Background(), ChangeStageInput{
		LeadID:           lead.ID,
		Stage:            domain.ClientStageInterested,
		ProductExplained: &explained,
		Channel:          &channel,
		NextFollowUpAt:   &followUp,
		Note:             strPtr("wants SIP details"),
	}, nil)
	if err != nil {
		t.Fatalf("change stage: %v", err)
	}
	if !updated.ApproachAt.Equal(followUp) || !updated.LastSeenAt.Equal(h.now) {
		t.Fatalf("expected approachAt and lastSeenAt stamped, got %+v", updated)
	}

	evs := h.events(t, lead.ID)
	if len(evs) != before+2 {
		t.Fatalf("expected snapshot plus interaction, got %d new", len(evs)-before)
	}
	interaction, snapshot := evs[0], evs[1]
	want := "Stage → INTERESTED | Product explained: Yes | Channel: CALL | Next follow-up: 2025-03-12T10:00:00Z | Note: wants SIP details"
	if snapshot.Text != want {
		t.Fatalf("unexpected summary:\n got %q\nwant %q", snapshot.Text, want)
	}
	if strings.Join(snapshot.Tags, ",") != "STAGE,CALL,PRODUCT_EXPLAINED" {
		t.Fatalf("unexpected tags %v", snapshot.Tags)
	}
	if interaction.Type != domain.EventInteraction || interaction.Text != "wants SIP details" {
		t.Fatalf("unexpected interaction %+v", interaction)
	}
}

func TestAddPhoneLimits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.intake(t, domain.LeadInput{Phone: "9876543210", LeadSource: "web", Name: strPtr("Asha")}).Lead

	if _, err := h.svc.AddPhone(ctx, lead.ID, domain.NewPhone{Number: "---"}, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	for i := 0; i < domain.MaxPhonesPerLead; i++ {
		if _, err := h.svc.AddPhone(ctx, lead.ID, domain.NewPhone{Number: "900000000" + string(rune('0'+i))}, nil); err != nil {
			t.Fatalf("add phone %d: %v", i, err)
		}
	}
	_, err := h.svc.AddPhone(ctx, lead.ID, domain.NewPhone{Number: "9999999999"}, nil)
	if !apperr.Is(err, apperr.KindValidation) || !strings.Contains(err.Error(), "Maximum 4") {
		t.Fatalf("expected phone limit error, got %v", err)
	}
}

func TestCreateLeadsBulk(t *testing.T) {
	h := newHarness(t)
	h.intake(t, domain.LeadInput{Phone: "9123456789", LeadSource: "web", Name: strPtr("Dev")})

	rows := []domain.LeadInput{
		{Phone: "9876543210", LeadSource: "expo", Name: strPtr("Asha")},
		{Phone: "  ", LeadSource: "expo", Name: strPtr("Nobody")},
		{Phone: "91234 56789", LeadSource: "expo", FirstName: strPtr("Dev")},
	}
	res, err := h.svc.CreateLeadsBulk(context.Background(), rows, nil)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Created != 1 || res.Merged != 1 || res.Failed != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Row 2") {
		t.Fatalf("expected an error for row 2, got %v", res.Errors)
	}
}

func TestBulkRowValidationMessages(t *testing.T) {
	cases := []struct {
		row  domain.LeadInput
		want string
	}{
		{domain.LeadInput{LeadSource: "x", Name: strPtr("a")}, "Phone missing"},
		{domain.LeadInput{Phone: "1", Name: strPtr("a")}, "Lead Source missing"},
		{domain.LeadInput{Phone: "1", LeadSource: "x", LastName: strPtr(" ")}, "Name missing"},
		{domain.LeadInput{Phone: "1", LeadSource: "x", LastName: strPtr("Rao")}, ""},
	}
	for _, tc := range cases {
		if got := validateRow(tc.row); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestGetEventsUnknownLead(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.GetEvents(context.Background(), uuid.New(), 0); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArchiveHidesLeadAndRecordsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.intake(t, domain.LeadInput{Phone: "9876500001", LeadSource: "web"}).Lead

	archived, err := h.svc.Archive(ctx, lead.ID, true, nil)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !archived.Archived {
		t.Fatal("expected lead to be archived")
	}

	page, err := h.svc.ListLeads(ctx, domain.LeadFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected archived lead to be hidden, got %d", page.Total)
	}
	page, err = h.svc.ListLeads(ctx, domain.LeadFilter{Archived: true})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected one archived lead, got %d", page.Total)
	}

	evs := h.events(t, lead.ID)
	if len(evs) != 2 {
		t.Fatalf("expected intake and archive events, got %d", len(evs))
	}
	latest := evs[0]
	if latest.Type != domain.EventHistorySnapshot || latest.Text != "Lead archived" {
		t.Fatalf("unexpected event %s %q", latest.Type, latest.Text)
	}
	prev, ok := latest.Prev.(domain.ArchiveSnapshot)
	if !ok || prev.Archived {
		t.Fatalf("unexpected prev snapshot %#v", latest.Prev)
	}
}

func TestAddInteractionRequiresText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.intake(t, domain.LeadInput{Phone: "9876500002", LeadSource: "web"}).Lead

	if _, err := h.svc.AddInteraction(ctx, lead.ID, "   ", nil, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	event, err := h.svc.AddInteraction(ctx, lead.ID, "Called, asked for SIP details", []string{"CALL"}, nil)
	if err != nil {
		t.Fatalf("add interaction: %v", err)
	}
	if event.Type != domain.EventInteraction || len(event.Tags) != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
}

type missingLeadJournal struct{ appends int }

func (m *missingLeadJournal) AppendEvent(context.Context, domain.LeadEvent) (domain.LeadEvent, error) {
	m.appends++
	return domain.LeadEvent{}, domain.ErrLeadNotFound
}

func (m *missingLeadJournal) ListEvents(context.Context, uuid.UUID, int) ([]domain.LeadEvent, error) {
	return nil, nil
}

func TestJournalLeadNotFoundSurfacesAsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.intake(t, domain.LeadInput{Phone: "9876500003", LeadSource: "web"}).Lead

	store := &missingLeadJournal{}
	h.svc.journal = journal.New(store, nil, func() time.Time { return h.now }, nil, logger.Discard())

	_, err := h.svc.UpdateRemark(ctx, lead.ID, strPtr("call back"), nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if store.appends != 1 {
		t.Fatalf("expected one append attempt, got %d", store.appends)
	}
}

// trackingRepo measures how many lead patches run at the same time.
type trackingRepo struct {
	*memstore.Store
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *trackingRepo) PatchLead(ctx context.Context, id uuid.UUID, patch domain.LeadPatch, now time.Time) (domain.Lead, domain.Lead, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return r.Store.PatchLead(ctx, id, patch, now)
}

func TestAssignManyHonoursConcurrency(t *testing.T) {
	h := newHarness(t)
	h.addRM("A", t0.Add(-time.Hour))

	repo := &trackingRepo{Store: h.store}
	log := logger.Discard()
	clock := func() time.Time { return h.now }
	alloc := sequence.New(h.counters, log)
	svc := New(Deps{
		Repo:              repo,
		Assigner:          assignment.NewRoundRobin(h.store, alloc, clock, log),
		Counter:           alloc,
		Journal:           journal.New(h.store, nil, clock, nil, log),
		Log:               log,
		Clock:             clock,
		AssignConcurrency: 10,
	})

	ids := make([]uuid.UUID, 0, 8)
	for i := 0; i < 8; i++ {
		lead := h.intake(t, domain.LeadInput{Phone: "7100000" + string(rune('0'+i)) + "00", LeadSource: "web"}).Lead
		ids = append(ids, lead.ID)
	}

	assigned, err := svc.AssignMany(context.Background(), ids, 2, nil)
	if err != nil {
		t.Fatalf("assign many: %v", err)
	}
	if len(assigned) != len(ids) {
		t.Fatalf("expected %d assigned, got %d", len(ids), len(assigned))
	}
	if peak := repo.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent assignments, saw %d", peak)
	}
}

func TestUpdateStatusToSameValueIsNotJournaled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.intake(t, domain.LeadInput{Phone: "9876500004", LeadSource: "web"}).Lead
	before := len(h.events(t, lead.ID))

	got, err := h.svc.UpdateStatus(ctx, lead.ID, domain.LeadStatusOpen, nil)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != domain.LeadStatusOpen {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if after := len(h.events(t, lead.ID)); after != before {
		t.Fatalf("expected no new event, had %d now %d", before, after)
	}

	if _, err := h.svc.UpdateStatus(ctx, lead.ID, domain.LeadStatusOnHold, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if after := len(h.events(t, lead.ID)); after != before+1 {
		t.Fatalf("expected one new event, had %d now %d", before, after)
	}
}
