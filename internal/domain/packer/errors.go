package packer

import "errors"

// Sentinel errors for packing.
var (
	ErrNoCompetitionDays = errors.New("no competition days configured")
)
