package seeding

import "time"

// Defaults applied by Normalize.
const (
	DefaultCategories  = 24
	DefaultCompetitors = 60
	DefaultRosterSize  = 8
	DefaultMatCount    = 4
	DefaultDayCount    = 2
	DefaultTimeout     = 30 * time.Second
)

// Session layout pushed with the generated config.
const (
	morningStart    = "09:00"
	morningEnd      = "12:00"
	afternoonStart  = "13:00"
	afternoonEnd    = "17:00"
	slotGranularity = 30
)

const (
	commandIDHeader  = "X-Command-ID"
	retryCount       = 3
	retryWait        = 500 * time.Millisecond
	retryMaxWait     = 3 * time.Second
	outputPermission = 0600
	outputDirPerm    = 0750
)
