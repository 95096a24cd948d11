package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/bhadrakali/chit-ledger/internal/ledger"
	"github.com/bhadrakali/chit-ledger/internal/model"
	xhttp "github.com/bhadrakali/chit-ledger/pkg/http"
)

type LedgerService interface {
	Chits() []model.ChitGroup
	Members() []model.Member
	Memberships() []model.GroupMembership
	Installments() []model.InstallmentSchedule
	Allotments() []model.Allotment
	Payments() []model.Payment
	PaymentRequests() []model.PaymentRequest
	Settings() model.MasterSettings

	AddChitGroup(p model.ChitGroupCreateRequest) (*model.ChitGroup, error)
	UpdateChitGroup(groupID string, upd model.ChitGroupUpdate) error
	AddMember(p model.MemberCreateRequest) (*model.Member, error)
	UpdateMember(memberID string, upd model.MemberUpdate, targetGroupID string) error
	BulkAddMembers(items []model.MemberCreateRequest) int
	CreateMembership(memberID, groupID string, tokenNo int) (*model.GroupMembership, error)
	TransferMembership(memberID, newGroupID string) error

	GrantAllotment(groupID, memberID string, monthNo int, amount float64) (*model.Allotment, error)
	EditAllotment(allotmentID string, upd model.AllotmentUpdate) error
	RevokeAllotment(allotmentID string) error

	RecordPayment(p model.PaymentCreateRequest) (*model.Payment, error)
	CreatePaymentRequest(p model.PaymentCreateRequest, note string) (*model.PaymentRequest, error)
	ApprovePaymentRequest(requestID, reviewedBy string) (*model.Payment, error)
	RejectPaymentRequest(requestID string) error

	InstallmentStatusFor(groupID, memberID string, monthNo int) ledger.InstallmentStatus
	CollectionSummaryFor(groupID string, monthNo int) ledger.CollectionSummary
	Dashboard() ledger.DashboardSummary
	GroupWinners(groupID string) []ledger.GroupWinner

	UpdateSettings(upd model.SettingsUpdate)
}

// ReminderService composes and queues WhatsApp reminders for one group month.
type ReminderService interface {
	SendReminders(ctx context.Context, groupID string, monthNo int) (int, error)
}

type LedgerHandler struct {
	svc       LedgerService
	reminders ReminderService
}

func NewLedgerHandler(svc LedgerService, reminders ReminderService) *LedgerHandler {
	return &LedgerHandler{
		svc:       svc,
		reminders: reminders,
	}
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	e.GET("/chits", h.ListChits)
	e.POST("/chits", h.CreateChit)
	e.PATCH("/chits/{id}", h.UpdateChit)
	e.GET("/chits/{id}/summary", h.CollectionSummary)
	e.GET("/chits/{id}/winners", h.GroupWinners)
	e.POST("/chits/{id}/reminders", h.SendReminders)

	e.GET("/members", h.ListMembers)
	e.POST("/members", h.CreateMember)
	e.POST("/members/bulk", h.BulkCreateMembers)
	e.PATCH("/members/{id}", h.UpdateMember)
	e.POST("/members/{id}/transfer", h.TransferMember)

	e.GET("/memberships", h.ListMemberships)
	e.POST("/memberships", h.CreateMembership)

	e.GET("/installments", h.InstallmentStatus)
	e.GET("/dashboard", h.Dashboard)

	e.GET("/allotments", h.ListAllotments)
	e.POST("/allotments", h.GrantAllotment)
	e.PATCH("/allotments/{id}", h.EditAllotment)
	e.POST("/allotments/{id}/revoke", h.RevokeAllotment)

	e.GET("/payments", h.ListPayments)
	e.POST("/payments", h.RecordPayment)
	e.GET("/payment-requests", h.ListPaymentRequests)
	e.POST("/payment-requests", h.CreatePaymentRequest)
	e.POST("/payment-requests/{id}/approve", h.ApprovePaymentRequest)
	e.POST("/payment-requests/{id}/reject", h.RejectPaymentRequest)

	e.GET("/settings", h.GetSettings)
	e.PATCH("/settings", h.UpdateSettings)
}

type createChitRequest struct {
	Name                       string  `json:"name"`
	TotalMonths                int     `json:"totalMonths"`
	StartMonth                 string  `json:"startMonth"`
	MonthlyInstallmentRegular  float64 `json:"monthlyInstallmentRegular"`
	MonthlyInstallmentAllotted float64 `json:"monthlyInstallmentAllotted"`
	MaxMembers                 int     `json:"maxMembers"`
	UpiID                      string  `json:"upiId"`
	WhatsappGroupLink          string  `json:"whatsappGroupLink"`
}

type updateChitRequest struct {
	Name                       *string           `json:"name"`
	MonthlyInstallmentRegular  *float64          `json:"monthlyInstallmentRegular"`
	MonthlyInstallmentAllotted *float64          `json:"monthlyInstallmentAllotted"`
	MaxMembers                 *int              `json:"maxMembers"`
	Status                     *model.ChitStatus `json:"status"`
	UpiID                      *string           `json:"upiId"`
	WhatsappGroupLink          *string           `json:"whatsappGroupLink"`
}

type createMemberRequest struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	ChitGroupID string `json:"chitGroupId"`
	TokenNo     int    `json:"tokenNo"`
}

type updateMemberRequest struct {
	Name        *string `json:"name"`
	Mobile      *string `json:"mobile"`
	IsActive    *bool   `json:"isActive"`
	ChitGroupID string  `json:"chitGroupId"` // non-empty transfers the member
}

type createMembershipRequest struct {
	MemberID    string `json:"memberId"`
	ChitGroupID string `json:"chitGroupId"`
	TokenNo     int    `json:"tokenNo"`
}

type transferMemberRequest struct {
	ChitGroupID string `json:"chitGroupId"`
}

type grantAllotmentRequest struct {
	ChitGroupID    string  `json:"chitGroupId"`
	MemberID       string  `json:"memberId"`
	MonthNo        int     `json:"monthNo"`
	AllottedAmount float64 `json:"allottedAmount"`
}

type editAllotmentRequest struct {
	MonthNo        *int     `json:"monthNo"`
	AllottedAmount *float64 `json:"allottedAmount"`
}

type recordPaymentRequest struct {
	ChitGroupID string `json:"chitGroupId"`
	MemberID    string `json:"memberId"`
	MonthNo     int    `json:"monthNo"`
	Amount      float64 `json:"amount"`
	Mode        string `json:"mode"`
	ReferenceNo string `json:"referenceNo"`
	CollectedBy string `json:"collectedBy"`
	Note        string `json:"note"`
}

type reviewPaymentRequest struct {
	ReviewedBy string `json:"reviewedBy"`
}

type updateSettingsRequest struct {
	MastersPasswordHash *string               `json:"mastersPasswordHash"`
	LateFeeRules        *model.LateFeeRules   `json:"lateFeeRules"`
	AppURL              *string               `json:"appUrl"`
	WhatsappConfig      *model.WhatsappConfig `json:"whatsappConfig"`
}

type listCountResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

type remindersResponse struct {
	Queued int `json:"queued"`
}

/* --------------------------------- Chits ----------------------------------- */

func (h *LedgerHandler) ListChits(ctx *xhttp.RequestCtx) {
	items := h.svc.Chits()
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) CreateChit(ctx *xhttp.RequestCtx) {
	var req createChitRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	g, err := h.svc.AddChitGroup(model.ChitGroupCreateRequest{
		Name:                       req.Name,
		TotalMonths:                req.TotalMonths,
		StartMonth:                 req.StartMonth,
		MonthlyInstallmentRegular:  req.MonthlyInstallmentRegular,
		MonthlyInstallmentAllotted: req.MonthlyInstallmentAllotted,
		MaxMembers:                 req.MaxMembers,
		UpiID:                      req.UpiID,
		WhatsappGroupLink:          req.WhatsappGroupLink,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, g)
}

func (h *LedgerHandler) UpdateChit(ctx *xhttp.RequestCtx) {
	var req updateChitRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	err := h.svc.UpdateChitGroup(param(ctx, "id"), model.ChitGroupUpdate{
		Name:                       req.Name,
		MonthlyInstallmentRegular:  req.MonthlyInstallmentRegular,
		MonthlyInstallmentAllotted: req.MonthlyInstallmentAllotted,
		MaxMembers:                 req.MaxMembers,
		Status:                     req.Status,
		UpiID:                      req.UpiID,
		WhatsappGroupLink:          req.WhatsappGroupLink,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "updated"})
}

func (h *LedgerHandler) CollectionSummary(ctx *xhttp.RequestCtx) {
	monthNo, err := strconv.Atoi(query(ctx, "month"))
	if err != nil || monthNo <= 0 {
		writeError(ctx, 400, "month must be a positive integer")
		return
	}
	writeJSON(ctx, 200, h.svc.CollectionSummaryFor(param(ctx, "id"), monthNo))
}

func (h *LedgerHandler) GroupWinners(ctx *xhttp.RequestCtx) {
	items := h.svc.GroupWinners(param(ctx, "id"))
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) SendReminders(ctx *xhttp.RequestCtx) {
	if h.reminders == nil {
		writeError(ctx, 503, "reminder delivery is not configured")
		return
	}
	monthNo, err := strconv.Atoi(query(ctx, "month"))
	if err != nil || monthNo <= 0 {
		writeError(ctx, 400, "month must be a positive integer")
		return
	}
	queued, err := h.reminders.SendReminders(ctx, param(ctx, "id"), monthNo)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 202, remindersResponse{Queued: queued})
}

/* -------------------------------- Members ----------------------------------- */

func (h *LedgerHandler) ListMembers(ctx *xhttp.RequestCtx) {
	items := h.svc.Members()
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) CreateMember(ctx *xhttp.RequestCtx) {
	var req createMemberRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	m, err := h.svc.AddMember(model.MemberCreateRequest{
		Name:        req.Name,
		Mobile:      req.Mobile,
		ChitGroupID: req.ChitGroupID,
		TokenNo:     req.TokenNo,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, m)
}

func (h *LedgerHandler) BulkCreateMembers(ctx *xhttp.RequestCtx) {
	var reqs []createMemberRequest
	if err := readJSON(ctx, &reqs); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	items := make([]model.MemberCreateRequest, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, model.MemberCreateRequest{
			Name:        r.Name,
			Mobile:      r.Mobile,
			ChitGroupID: r.ChitGroupID,
			TokenNo:     r.TokenNo,
		})
	}
	added := h.svc.BulkAddMembers(items)
	writeJSON(ctx, 200, map[string]int{"added": added, "skipped": len(items) - added})
}

func (h *LedgerHandler) UpdateMember(ctx *xhttp.RequestCtx) {
	var req updateMemberRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	err := h.svc.UpdateMember(param(ctx, "id"), model.MemberUpdate{
		Name:     req.Name,
		Mobile:   req.Mobile,
		IsActive: req.IsActive,
	}, req.ChitGroupID)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "updated"})
}

func (h *LedgerHandler) TransferMember(ctx *xhttp.RequestCtx) {
	var req transferMemberRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.TransferMembership(param(ctx, "id"), req.ChitGroupID); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "transferred"})
}

/* ------------------------------ Memberships ---------------------------------- */

func (h *LedgerHandler) ListMemberships(ctx *xhttp.RequestCtx) {
	items := h.svc.Memberships()
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) CreateMembership(ctx *xhttp.RequestCtx) {
	var req createMembershipRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	ms, err := h.svc.CreateMembership(req.MemberID, req.ChitGroupID, req.TokenNo)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, ms)
}

/* ------------------------------ Installments --------------------------------- */

func (h *LedgerHandler) InstallmentStatus(ctx *xhttp.RequestCtx) {
	groupID := query(ctx, "chitGroupId")
	memberID := query(ctx, "memberId")
	monthNo, err := strconv.Atoi(query(ctx, "month"))
	if groupID == "" || memberID == "" || err != nil || monthNo <= 0 {
		writeError(ctx, 400, "chitGroupId, memberId and month are required")
		return
	}
	writeJSON(ctx, 200, h.svc.InstallmentStatusFor(groupID, memberID, monthNo))
}

func (h *LedgerHandler) Dashboard(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, h.svc.Dashboard())
}

/* ------------------------------- Allotments ---------------------------------- */

func (h *LedgerHandler) ListAllotments(ctx *xhttp.RequestCtx) {
	items := h.svc.Allotments()
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) GrantAllotment(ctx *xhttp.RequestCtx) {
	var req grantAllotmentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	a, err := h.svc.GrantAllotment(req.ChitGroupID, req.MemberID, req.MonthNo, req.AllottedAmount)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, a)
}

func (h *LedgerHandler) EditAllotment(ctx *xhttp.RequestCtx) {
	var req editAllotmentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	err := h.svc.EditAllotment(param(ctx, "id"), model.AllotmentUpdate{
		MonthNo:        req.MonthNo,
		AllottedAmount: req.AllottedAmount,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "updated"})
}

func (h *LedgerHandler) RevokeAllotment(ctx *xhttp.RequestCtx) {
	if err := h.svc.RevokeAllotment(param(ctx, "id")); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "revoked"})
}

/* -------------------------------- Payments ----------------------------------- */

func (h *LedgerHandler) ListPayments(ctx *xhttp.RequestCtx) {
	items := h.svc.Payments()
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) RecordPayment(ctx *xhttp.RequestCtx) {
	var req recordPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	pay, err := h.svc.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: req.ChitGroupID,
		MemberID:    req.MemberID,
		MonthNo:     req.MonthNo,
		Amount:      req.Amount,
		Mode:        paymentMode(req.Mode),
		ReferenceNo: req.ReferenceNo,
		CollectedBy: req.CollectedBy,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, pay)
}

func (h *LedgerHandler) ListPaymentRequests(ctx *xhttp.RequestCtx) {
	items := h.svc.PaymentRequests()
	writeJSON(ctx, 200, listCountResponse{Items: items, Total: len(items)})
}

func (h *LedgerHandler) CreatePaymentRequest(ctx *xhttp.RequestCtx) {
	var req recordPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	pr, err := h.svc.CreatePaymentRequest(model.PaymentCreateRequest{
		ChitGroupID: req.ChitGroupID,
		MemberID:    req.MemberID,
		MonthNo:     req.MonthNo,
		Amount:      req.Amount,
		Mode:        paymentMode(req.Mode),
		ReferenceNo: req.ReferenceNo,
	}, req.Note)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, pr)
}

func (h *LedgerHandler) ApprovePaymentRequest(ctx *xhttp.RequestCtx) {
	var req reviewPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	pay, err := h.svc.ApprovePaymentRequest(param(ctx, "id"), req.ReviewedBy)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, pay)
}

func (h *LedgerHandler) RejectPaymentRequest(ctx *xhttp.RequestCtx) {
	if err := h.svc.RejectPaymentRequest(param(ctx, "id")); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "rejected"})
}

/* -------------------------------- Settings ----------------------------------- */

func (h *LedgerHandler) GetSettings(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, h.svc.Settings())
}

func (h *LedgerHandler) UpdateSettings(ctx *xhttp.RequestCtx) {
	var req updateSettingsRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	h.svc.UpdateSettings(model.SettingsUpdate{
		MastersPasswordHash: req.MastersPasswordHash,
		LateFeeRules:        req.LateFeeRules,
		AppURL:              req.AppURL,
		WhatsappConfig:      req.WhatsappConfig,
	})
	writeJSON(ctx, 200, map[string]string{"status": "updated"})
}

func paymentMode(s string) model.PaymentMode {
	if s == "" {
		return model.PaymentModeCash
	}
	return model.PaymentMode(s)
}
