// Package logging configures the logrus standard logger.
package logging

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup sets the level and the output format ("json" or "text") of the
// standard logger and tags every entry with service.
func Setup(service, level, format string) (*log.Entry, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log.WithField("service", service), nil
}
