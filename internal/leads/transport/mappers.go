package transport

import (
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/lifecycle"

	"github.com/google/uuid"
)

func ToLeadInput(req CreateLeadRequest) domain.LeadInput {
	return domain.LeadInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		LeadSource:      req.LeadSource,
		ReferralCode:    req.ReferralCode,
		Gender:          req.Gender,
		Age:             req.Age,
		Location:        req.Location,
		Profession:      req.Profession,
		CompanyName:     req.CompanyName,
		Designation:     req.Designation,
		Product:         req.Product,
		InvestmentRange: req.InvestmentRange,
		SipAmount:       req.SipAmount,
		ClientTypes:     req.ClientTypes,
		Remark:          req.Remark,
		ApproachAt:      req.ApproachAt,
		ClientQA:        ToQAItems(req.ClientQA),
	}
}

func ToQAItems(items []QAItem) []domain.QAItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.QAItem, len(items))
	for i, item := range items {
		out[i] = domain.QAItem{Question: item.Question, Answer: item.Answer}
	}
	return out
}

func ToLeadFilter(req ListLeadsRequest) domain.LeadFilter {
	filter := domain.LeadFilter{
		Archived:    req.Archived,
		Search:      req.Search,
		DormantOnly: req.DormantOnly,
		DormantDays: req.DormantDays,
		Page:        req.Page,
		PageSize:    req.PageSize,
	}
	if req.Status != "" {
		status := domain.LeadStatus(req.Status)
		filter.Status = &status
	}
	return filter
}

func ToChangeStageInput(leadID uuid.UUID, req ChangeStageRequest) lifecycle.ChangeStageInput {
	in := lifecycle.ChangeStageInput{
		LeadID:           leadID,
		Stage:            domain.ClientStage(req.Stage),
		ProductExplained: req.ProductExplained,
		NextFollowUpAt:   req.NextFollowUpAt,
		Note:             req.Note,
	}
	if req.Channel != nil {
		channel := domain.InteractionChannel(*req.Channel)
		in.Channel = &channel
	}
	return in
}

func ToLeadResponse(l domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:              l.ID,
		FirstName:       l.FirstName,
		LastName:        l.LastName,
		Name:            l.Name,
		Email:           l.Email,
		Phone:           l.Phone,
		PhoneNormalized: l.PhoneNormalized,
		LeadSource:      l.LeadSource,
		LeadCode:        l.LeadCode,
		ReferralCode:    l.ReferralCode,
		Gender:          l.Gender,
		Age:             l.Age,
		Location:        l.Location,
		Profession:      l.Profession,
		CompanyName:     l.CompanyName,
		Designation:     l.Designation,
		Product:         l.Product,
		InvestmentRange: l.InvestmentRange,
		SipAmount:       l.SipAmount,
		ClientTypes:     l.ClientTypes,
		Remark:          l.Remark,
		BioText:         l.BioText,
		Status:          string(l.Status),
		AssignedRmID:    l.AssignedRmID,
		AssignedRM:      l.AssignedRmName,
		ReenterCount:    l.ReenterCount,
		FirstSeenAt:     l.FirstSeenAt,
		LastSeenAt:      l.LastSeenAt,
		ApproachAt:      l.ApproachAt,
		ClientQA:        make([]QAItem, 0, len(l.ClientQA)),
		Archived:        l.Archived,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.ClientStage != nil {
		stage := string(*l.ClientStage)
		resp.ClientStage = &stage
	}
	for _, item := range l.ClientQA {
		resp.ClientQA = append(resp.ClientQA, QAItem{Question: item.Question, Answer: item.Answer})
	}
	return resp
}

func ToLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, len(leads))
	for i, l := range leads {
		out[i] = ToLeadResponse(l)
	}
	return out
}

func ToLeadListResponse(page domain.LeadPage) LeadListResponse {
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = (page.Total + page.PageSize - 1) / page.PageSize
	}
	return LeadListResponse{
		Items:      ToLeadResponses(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}
}

func ToPhoneResponse(p domain.LeadPhone) PhoneResponse {
	return PhoneResponse{
		ID:         p.ID,
		LeadID:     p.LeadID,
		Label:      string(p.Label),
		Number:     p.Number,
		Normalized: p.Normalized,
		IsPrimary:  p.IsPrimary,
		IsWhatsapp: p.IsWhatsapp,
		CreatedAt:  p.CreatedAt,
	}
}

func ToPhoneResponses(phones []domain.LeadPhone) []PhoneResponse {
	out := make([]PhoneResponse, len(phones))
	for i, p := range phones {
		out[i] = ToPhoneResponse(p)
	}
	return out
}

func ToEventResponse(e domain.LeadEvent) EventResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return EventResponse{
		ID:         e.ID,
		LeadID:     e.LeadID,
		AuthorID:   e.AuthorID,
		Type:       string(e.Type),
		OccurredAt: e.OccurredAt,
		Text:       e.Text,
		Tags:       tags,
		Prev:       toSnapshotResponse(e.Prev),
		Next:       toSnapshotResponse(e.Next),
		Meta:       e.Meta,
	}
}

func ToEventResponses(events []domain.LeadEvent) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = ToEventResponse(e)
	}
	return out
}

func toSnapshotResponse(s domain.Snapshot) *SnapshotResponse {
	if s == nil {
		return nil
	}
	return &SnapshotResponse{Kind: string(s.Kind()), Data: s}
}
