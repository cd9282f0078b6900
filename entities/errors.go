package entities

import "errors"

var ErrStoreEntityNotFound = errors.New("store resource not found")
var ErrAccountNotFound = errors.New("holding account not found")
