// Author: momentics <momentics@gmail.com>

package config

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the [logging] block to the standard logrus logger.
// An unknown level is reported and ignored.
func ConfigureLogging(conf LogConfig) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		log.WithField("format", conf.Format).Warn("Unknown logging format")
	}
}
