package model

import (
	"errors"
	"fmt"
)

// RejectionKind classifies a user-facing rejection
type RejectionKind string

const (
	KindAssociation  RejectionKind = "association"
	KindOverlap      RejectionKind = "overlap"
	KindUnavailable  RejectionKind = "unavailable"
	KindClosed       RejectionKind = "closed"
	KindHours        RejectionKind = "hours"
	KindOwnership    RejectionKind = "ownership"
	KindBlacklisted  RejectionKind = "blacklisted"
	KindPrecondition RejectionKind = "precondition"
	KindPermission   RejectionKind = "permission"
	KindInvalid      RejectionKind = "invalid"
	KindNotFound     RejectionKind = "not_found"
)

// Rejection is a recoverable, per-request validation outcome.
// It is never fatal; boundaries surface Kind and Detail to the caller.
type Rejection struct {
	Kind   RejectionKind
	Detail string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
}

// Reject builds a Rejection with a formatted detail
func Reject(kind RejectionKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a Rejection if it contains one
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsKind reports whether err is a Rejection of the given kind
func IsKind(err error, kind RejectionKind) bool {
	r, ok := AsRejection(err)
	return ok && r.Kind == kind
}
