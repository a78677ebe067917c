package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// TxnType category of a pending transaction.
type TxnType string

const (
	TxnApproveStaking   TxnType = "approve_staking"
	TxnApproveUnstaking TxnType = "approve_unstaking"
	TxnStaking          TxnType = "staking"
	TxnUnstaking        TxnType = "unstaking"
)

// PendingTxn submitted but unconfirmed transaction.
type PendingTxn struct {
	TxnHash string  `json:"txnHash"`
	Text    string  `json:"text"`
	Type    TxnType `json:"type"`
}

// StakeAction direction of a staking submission.
type StakeAction string

const (
	ActionStake   StakeAction = "stake"
	ActionUnstake StakeAction = "unstake"
)

// ParseStakeAction accepts stake and unstake in any case.
func ParseStakeAction(s string) (StakeAction, error) {
	switch StakeAction(strings.ToLower(strings.TrimSpace(s))) {
	case ActionStake:
		return ActionStake, nil
	case ActionUnstake:
		return ActionUnstake, nil
	}
	return "", errors.Errorf("unknown stake action %q", s)
}

// Text human readable pending description.
func (a StakeAction) Text() string {
	if a == ActionUnstake {
		return "Unstaking sMADAO"
	}
	return "Staking MADAO"
}

// TxnType pending category of the action.
func (a StakeAction) TxnType() TxnType {
	if a == ActionUnstake {
		return TxnUnstaking
	}
	return TxnStaking
}

// ApprovalToken token whose allowance is being granted.
type ApprovalToken string

const (
	// ApproveMadao lets the staking helper pull MADAO.
	ApproveMadao ApprovalToken = "madao"
	// ApproveSMadao lets the staking contract pull sMADAO.
	ApproveSMadao ApprovalToken = "smadao"
)

// ParseApprovalToken accepts madao and smadao in any case.
func ParseApprovalToken(s string) (ApprovalToken, error) {
	switch ApprovalToken(strings.ToLower(strings.TrimSpace(s))) {
	case ApproveMadao:
		return ApproveMadao, nil
	case ApproveSMadao:
		return ApproveSMadao, nil
	}
	return "", errors.Errorf("unknown approval token %q", s)
}

// Text human readable pending description.
func (t ApprovalToken) Text() string {
	if t == ApproveSMadao {
		return "Approve Unstaking"
	}
	return "Approve Staking"
}

// TxnType pending category of the approval.
func (t ApprovalToken) TxnType() TxnType {
	if t == ApproveSMadao {
		return TxnApproveUnstaking
	}
	return TxnApproveStaking
}
