package vfs

import "errors"

// Tagged error kinds returned by engine operations. Callers classify
// with errors.Is; lower layers wrap cause details around these.
var (
	ErrNotFound             = errors.New("item not found")
	ErrNameConflict         = errors.New("name already exists in destination")
	ErrInvalidTarget        = errors.New("invalid move target")
	ErrCrossDomainMove      = errors.New("source and destination are in different filesystem domains")
	ErrRestoreTargetMissing = errors.New("restore destination no longer exists")
	ErrRemoteDeleteFailed   = errors.New("remote delete failed")
	ErrRemoteFetchFailed    = errors.New("remote fetch failed")
	ErrStoreIO              = errors.New("store i/o error")
)
