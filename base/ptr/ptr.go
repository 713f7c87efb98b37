package ptr

import "github.com/auctionmarket/goapi/domain"

// String return a pointer to the input value
func String(value string) *string {
	return &value
}

// Int64 return a pointer to the input value
func Int64(value int64) *int64 {
	return &value
}

// Bool return a pointer to the input value
func Bool(value bool) *bool {
	return &value
}

// Address return a pointer to the input value
func Address(value domain.Address) *domain.Address {
	return &value
}
