// Copyright (c) 2019 Perlin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package sortition

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateIdentifier = errors.New("identifier is already present in the pool")
	ErrEmptyPool           = errors.New("pool has no drawable weight")
	ErrNotFound            = errors.New("identifier is not present in the pool")
	ErrBanned              = errors.New("identifier is banned from the pool")
	ErrNotEligible         = errors.New("identifier has no eligible weight")
	ErrPoolLocked          = errors.New("pool is locked")
	ErrInvalidGroupSize    = errors.New("group size must be positive")
	ErrUnknownGroup        = errors.New("group was not issued by this consumer")
	ErrNotGroupMember      = errors.New("identifier is not a member of the group")
	ErrGroupMismatch       = errors.New("group does not match the selection for its seed")
	ErrGroupUnderweight    = errors.New("group weight is below the required minimum")
	ErrInvalidWeightFunc   = errors.New("weight divisor must be positive and minimum stake non-negative")
)

// InsufficientPoolError is returned by group selection when the pool cannot
// produce a group of the requested size. The fields describe the pool at the
// time of the call so that a caller may decide whether to wait or abort.
type InsufficientPoolError struct {
	TotalWeight uint64
	Eligible    int
	Requested   int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf(
		"insufficient pool: requested %d members, %d eligible with total weight %d",
		e.Requested, e.Eligible, e.TotalWeight,
	)
}

// IsInsufficientPool reports whether the cause of err is an
// *InsufficientPoolError.
func IsInsufficientPool(err error) bool {
	_, ok := errors.Cause(err).(*InsufficientPoolError)
	return ok
}
