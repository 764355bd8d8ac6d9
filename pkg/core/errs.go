package core

import "errors"

var (
	ErrNotFound      = errors.New("price data not found")
	ErrEmptyAddress  = errors.New("empty token address")
	ErrUnknownDriver = errors.New("unknown storage driver")
)
