package hftcore

import (
	"errors"

	"github.com/0x5487/hftcore/structure"
)

var (
	ErrInvalidParam          = errors.New("the param is invalid")
	ErrInvalidCapacity       = structure.ErrInvalidCapacity
	ErrCapacityNotPowerOfTwo = structure.ErrCapacityNotPowerOfTwo
	ErrPricePrecision        = errors.New("price has more than 8 decimal places")
	ErrPriceOverflow         = errors.New("price does not fit in 64 bits")
	ErrNilUpdateRing         = errors.New("update ring is nil")
)
