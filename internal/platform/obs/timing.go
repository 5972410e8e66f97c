package obs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Time logs the duration of an operation and its error, if any.
//
//	defer obs.Time(ctx, "ors.DistanceMatrix")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		entry := Logger(ctx).WithFields(logrus.Fields{
			"op":     name,
			"dur_ms": time.Since(start).Milliseconds(),
		})

		if errp != nil && *errp != nil {
			entry.WithError(*errp).Info("operation failed")
			return
		}
		entry.Debug("operation done")
	}
}
