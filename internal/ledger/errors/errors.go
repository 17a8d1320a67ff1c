package errors

import (
	"fmt"
)

var (
	ErrNoCompany           = fmt.Errorf("no company")
	ErrNotOwner            = fmt.Errorf("not the company owner")
	ErrNotMember           = fmt.Errorf("not a company member")
	ErrAlreadyMember       = fmt.Errorf("already a company member")
	ErrAlreadyOwnsCompany  = fmt.Errorf("already owns a company")
	ErrNameTaken           = fmt.Errorf("company name taken")
	ErrUnknownRank         = fmt.Errorf("unknown rank")
	ErrDuplicateRank       = fmt.Errorf("duplicate rank")
	ErrRankLimitReached    = fmt.Errorf("rank limit reached")
	ErrNegativeAmount      = fmt.Errorf("negative amount")
	ErrInsufficientBalance = fmt.Errorf("insufficient warehouse balance")
	ErrInsufficientFunds   = fmt.Errorf("insufficient funds held by actor")
	ErrSinkRejected        = fmt.Errorf("funds sink rejected delivery")
)
