package domain

import (
	"math/big"
	"strings"
)

var (
	Big0  = big.NewInt(0)
	Big10 = big.NewInt(10)
)

type ChainId int32

type Address string

// EmptyAddress doubles as the payment-asset sentinel for the native
// currency, matching the zero-address convention of the settlement layer.
const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0 || a.Equals(EmptyAddress)
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

func (i TokenId) ToBigInt() (*big.Int, error) {
	id, ok := new(big.Int).SetString(string(i), 10)
	if !ok {
		return nil, ErrInvalidNumberFormat
	}
	return id, nil
}

type Table string

const (
	TableAuctions = Table("auctions")
)
