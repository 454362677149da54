package senda

import _ "embed"

// Version is the library release. Consumers should strings.TrimSpace it
// before display since the embedded file ends in a newline.
//
//go:embed VERSION
var Version string
