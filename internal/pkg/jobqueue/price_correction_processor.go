package jobqueue

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
)

// PriceCorrectionProcessor acknowledges price-correction requests. The actual
// recompute runs in the catalog pricing worker, which consumes the same queue
// in its own deployment; this processor records the request so corrections
// are visible in job stats even when no pricing worker is attached.
func PriceCorrectionProcessor(ctx context.Context, job *Job) error {
	payload, err := PriceCorrectionJobPayloadFromMap(job.Payload)
	if err != nil {
		return err
	}
	if payload.Scope == "" {
		return errors.New("price correction job missing scope")
	}

	log.Infof("[JobQueue] Price correction requested for %s (correlation %s)", payload.Scope, payload.CorrelationID)
	return nil
}
