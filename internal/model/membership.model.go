package model

type GroupMembership struct {
	GroupMembershipID string `json:"groupMembershipId"`
	ChitGroupID       string `json:"chitGroupId"`
	MemberID          string `json:"memberId"`
	TokenNo           int    `json:"tokenNo"` // unique within the group
	JoinedOn          string `json:"joinedOn"` // YYYY-MM-DD
}
