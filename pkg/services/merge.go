package services

import (
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/metrics"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
)

// mergeAlert is the single path through which live alerts reach the store,
// whether they come from the stream or from a submission response.
func mergeAlert(s *store.AlertStore, source string, alert models.Alert) bool {
	inserted := s.Merge(alert)
	metrics.ObserveMerge(source, inserted)

	entry := logrus.WithFields(logrus.Fields{
		"alertId":  alert.AlertID,
		"severity": alert.Severity,
		"source":   source,
	})
	if inserted {
		entry.Info("Alert merged")
	} else {
		entry.Debug("Alert already present, merge skipped")
	}
	return inserted
}
