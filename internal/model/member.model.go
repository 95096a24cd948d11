package model

import (
	"errors"
	"strings"
)

type Member struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Mobile   string `json:"mobile"` // stored as dialable digits, country code optional
	IsActive bool   `json:"isActive"`
}

// MemberCreateRequest is the input for creating a member, optionally
// joining a chit group in the same call.
type MemberCreateRequest struct {
	Name        string
	Mobile      string
	ChitGroupID string // optional; empty means no membership is created
	TokenNo     int    // optional; 0 means auto-assign
}

func (p MemberCreateRequest) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(p.Mobile) == "" {
		return errors.New("mobile is required")
	}
	return nil
}

// MemberUpdate carries partial member changes. Nil fields are left untouched.
type MemberUpdate struct {
	Name     *string
	Mobile   *string
	IsActive *bool
}
