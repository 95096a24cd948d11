package fixtures

import (
	"fmt"
	"time"

	"github.com/bhadrakali/chit-ledger/internal/model"
)

var (
	TestGroupSmall = model.ChitGroupCreateRequest{
		Name:                      "Ganesh Chit 10K",
		TotalMonths:               10,
		StartMonth:                "2025-04-01",
		MonthlyInstallmentRegular: 1000,
		MaxMembers:                10,
		UpiID:                     "ganeshfund@okaxis",
	}

	TestGroupLarge = model.ChitGroupCreateRequest{
		Name:                       "Lakshmi Chit 1L",
		TotalMonths:                20,
		StartMonth:                 "2025-06-01",
		MonthlyInstallmentRegular:  5000,
		MonthlyInstallmentAllotted: 5500,
		MaxMembers:                 20,
	}

	TestGroupUnbounded = model.ChitGroupCreateRequest{
		Name:                      "Open Pool",
		TotalMonths:               12,
		StartMonth:                "2025-01-01",
		MonthlyInstallmentRegular: 2000,
	}
)

var (
	ValidMobileNumbers = []string{
		"9876543210",
		"98765 43210",
		"+91 98765 43210",
		"919876543210",
	}

	InvalidMobileNumbers = []string{
		"",
		"   ",
	}
)

func NewTestMember(name, mobile, groupID string) model.MemberCreateRequest {
	return model.MemberCreateRequest{
		Name:        name,
		Mobile:      mobile,
		ChitGroupID: groupID,
	}
}

func NewTestPayment(groupID, memberID string, monthNo int, amount float64) model.PaymentCreateRequest {
	return model.PaymentCreateRequest{
		ChitGroupID: groupID,
		MemberID:    memberID,
		MonthNo:     monthNo,
		Amount:      amount,
		Mode:        model.PaymentModeCash,
		CollectedBy: "admin",
	}
}

// SeededDataset builds a dataset with one group, two members and their
// generated schedules, stamped at the given time. Handy for remote-store
// and reconcile tests that need a non-empty snapshot without a ledger.
func SeededDataset(stamp time.Time) *model.Dataset {
	ds := model.NewDataset()
	ds.Chits = append(ds.Chits, model.ChitGroup{
		ChitGroupID:               "g1",
		Name:                      "Ganesh Chit 10K",
		TotalMonths:               10,
		StartMonth:                "2025-04-01",
		MonthlyInstallmentRegular: 1000,
		Status:                    model.ChitStatusActive,
	})
	for i, name := range []string{"Asha", "Bina"} {
		memberID := fmt.Sprintf("m%d", i+1)
		ds.Members = append(ds.Members, model.Member{
			MemberID: memberID,
			Name:     name,
			Mobile:   "9876543210",
			IsActive: true,
		})
		ds.Memberships = append(ds.Memberships, model.GroupMembership{
			GroupMembershipID: "ms-" + memberID,
			ChitGroupID:       "g1",
			MemberID:          memberID,
			TokenNo:           i + 1,
			JoinedOn:          "2025-04-01",
		})
		for month := 1; month <= 10; month++ {
			ds.Installments = append(ds.Installments, model.InstallmentSchedule{
				ScheduleID:  fmt.Sprintf("s-%s-%d", memberID, month),
				ChitGroupID: "g1",
				MemberID:    memberID,
				MonthNo:     month,
				DueDate:     ds.Chits[0].DueDate(month),
				DueAmount:   1000,
				Status:      model.PaymentStatusPending,
			})
		}
	}
	ds.LastUpdated = stamp
	return ds
}
