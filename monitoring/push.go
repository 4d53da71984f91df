package monitoring

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// TrainingJob is the Pushgateway job name used by the trainer.
const TrainingJob = "winequality_trainer"

// PushTraining sends everything in gatherer to the Pushgateway at url. The
// trainer exits after one run, so its gauges are pushed instead of scraped.
func PushTraining(ctx context.Context, url string, gatherer prometheus.Gatherer) error {
	if err := push.New(url, TrainingJob).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
