// ABOUTME: Centralized configuration defaults for podroll
// ABOUTME: Contains magic numbers and hardcoded values for crawling, display and storage

package config

import "time"

// HTTP settings
const (
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultFetchRetries  = 2
	DefaultRetryDelay    = 2 * time.Second
	DefaultRetryMaxDelay = 30 * time.Second
)

// Crawl settings
const (
	DefaultWorkers    = 4
	DefaultBatchLimit = 200
	DefaultLeaseTTL   = 10 * time.Minute
)

// Daemon schedules, in standard five-field cron syntax
const (
	DefaultCrawlCron     = "*/15 * * * *"
	DefaultRecommendCron = "30 3 * * *"
)

// Display settings
const (
	DefaultListLimit = 20
	DisplayIDLength  = 8
	SeparatorWidth   = 60
	DateFormatShort  = "02 Jan 06 15:04 MST"
	DateFormatLong   = "Mon, 02 Jan 2006 15:04 MST"
)

// Storage settings
const (
	DefaultDirPerms = 0755
)
