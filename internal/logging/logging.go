// Package logging builds the process-wide structured logger, grounded on
// the teacher pack's initLogger (tareqmamari-cloud-logs-mcp/main.go):
// zap.NewProduction() when ENVIRONMENT=production, zap.NewDevelopment()
// otherwise, so local runs keep readable console output while deployed
// instances emit JSON.
package logging

import "go.uber.org/zap"

// Notable-event tag prefixes, used sparingly on the handful of log lines
// that mark a pipeline stage or a high-risk finding — not on every line.
const (
	TagDiscovery = "🔍"
	TagFetch     = "🕸️"
	TagResolve   = "🧩"
	TagHighRisk  = "🚨"
)

// New builds the process logger for the given environment.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
