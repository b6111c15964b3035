// Package logging configures the zap logger used by every task. Each task
// logs under its own tag; severity maps onto zap levels.
package logging
