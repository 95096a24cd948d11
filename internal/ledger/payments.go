package ledger

import (
	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
)

// RecordPayment appends a payment and folds it into the matching schedule
// row: paidAmount grows, paidDate moves to this payment's date, status is
// re-derived. A payment without a schedule row is retained anyway so no
// collected money is ever dropped; the aggregate catches up once the row
// exists again.
func (l *Ledger) RecordPayment(p model.PaymentCreateRequest) (*model.Payment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	pay := model.Payment{
		PaymentID:   l.newID(),
		ChitGroupID: p.ChitGroupID,
		MemberID:    p.MemberID,
		MonthNo:     p.MonthNo,
		PaidAmount:  p.Amount,
		PaymentDate: l.date(),
		PaymentMode: p.Mode,
		ReferenceNo: p.ReferenceNo,
		CollectedBy: p.CollectedBy,
	}
	l.recordPaymentLocked(pay)
	l.commitLocked()
	l.mu.Unlock()

	if l.notifier != nil {
		l.notifier.PaymentRecorded(pay)
	}
	return &pay, nil
}

func (l *Ledger) recordPaymentLocked(pay model.Payment) {
	l.data.Payments = append(l.data.Payments, pay)

	row := l.scheduleRowLocked(pay.ChitGroupID, pay.MemberID, pay.MonthNo)
	if row == nil {
		logger.Warn("payment has no matching schedule row, retained unaggregated",
			"paymentId", pay.PaymentID,
			"chitGroupId", pay.ChitGroupID,
			"memberId", pay.MemberID,
			"monthNo", pay.MonthNo)
		return
	}
	row.PaidAmount += pay.PaidAmount
	row.PaidDate = pay.PaymentDate
	row.Status = model.DeriveStatus(row.PaidAmount, row.DueAmount)
}

func (l *Ledger) scheduleRowLocked(groupID, memberID string, monthNo int) *model.InstallmentSchedule {
	for i := range l.data.Installments {
		row := &l.data.Installments[i]
		if row.ChitGroupID == groupID && row.MemberID == memberID && row.MonthNo == monthNo {
			return row
		}
	}
	return nil
}

/* ---------------------------- Payment requests ---------------------------- */

// CreatePaymentRequest files a member-submitted payment claim for review.
func (l *Ledger) CreatePaymentRequest(p model.PaymentCreateRequest, note string) (*model.PaymentRequest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pr := model.PaymentRequest{
		PaymentRequestID: l.newID(),
		ChitGroupID:      p.ChitGroupID,
		MemberID:         p.MemberID,
		MonthNo:          p.MonthNo,
		Amount:           p.Amount,
		RequestedOn:      l.date(),
		Status:           model.PaymentRequestPending,
		ReferenceNo:      p.ReferenceNo,
		Note:             note,
	}
	l.data.PaymentRequests = append(l.data.PaymentRequests, pr)
	l.commitLocked()
	return &pr, nil
}

// ApprovePaymentRequest flips a pending request to approved and records the
// claimed payment through the normal aggregation path. Already-reviewed
// requests cannot be approved again.
func (l *Ledger) ApprovePaymentRequest(requestID, reviewedBy string) (*model.Payment, error) {
	l.mu.Lock()

	pr, ok := l.paymentRequestLocked(requestID)
	if !ok {
		l.mu.Unlock()
		return nil, ErrPaymentRequestNotFound
	}
	if pr.Status != model.PaymentRequestPending {
		l.mu.Unlock()
		return nil, ErrPaymentRequestClosed
	}
	pr.Status = model.PaymentRequestApproved

	pay := model.Payment{
		PaymentID:   l.newID(),
		ChitGroupID: pr.ChitGroupID,
		MemberID:    pr.MemberID,
		MonthNo:     pr.MonthNo,
		PaidAmount:  pr.Amount,
		PaymentDate: l.date(),
		PaymentMode: model.PaymentModeOnline,
		ReferenceNo: pr.ReferenceNo,
		CollectedBy: reviewedBy,
	}
	l.recordPaymentLocked(pay)
	l.commitLocked()
	l.mu.Unlock()

	if l.notifier != nil {
		l.notifier.PaymentRecorded(pay)
	}
	return &pay, nil
}

// RejectPaymentRequest closes a pending request without recording anything.
func (l *Ledger) RejectPaymentRequest(requestID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pr, ok := l.paymentRequestLocked(requestID)
	if !ok {
		return ErrPaymentRequestNotFound
	}
	if pr.Status != model.PaymentRequestPending {
		return ErrPaymentRequestClosed
	}
	pr.Status = model.PaymentRequestRejected
	l.commitLocked()
	return nil
}

func (l *Ledger) paymentRequestLocked(requestID string) (*model.PaymentRequest, bool) {
	for i := range l.data.PaymentRequests {
		if l.data.PaymentRequests[i].PaymentRequestID == requestID {
			return &l.data.PaymentRequests[i], true
		}
	}
	return nil, false
}
