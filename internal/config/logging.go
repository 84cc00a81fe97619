package config

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ApplyLogging configures the process-wide logrus logger.
func (c LogConfig) ApplyLogging() error {
	level := c.Level
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	log.SetLevel(lvl)

	if strings.EqualFold(c.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
