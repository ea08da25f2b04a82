package statemachine

import "errors"

// ErrKeyDoesNotExist is returned by CompareAndSwap for an absent key
// (Read reports absence through its bool result).
var ErrKeyDoesNotExist = errors.New("key does not exist")

// ErrPreconditionFailed is returned by CompareAndSwap when the stored
// value does not match the expected prior value.
var ErrPreconditionFailed = errors.New("precondition failed")
