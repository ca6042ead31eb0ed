package snapshot

import "errors"

// ErrLowDiskSpace reports that an artifact write was refused because the
// target filesystem is nearly full.
var ErrLowDiskSpace = errors.New("not enough free disk space")
