package deployment

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

// sagaStep is one forward action of a deployment with its undo. Compensate
// may be nil for steps with nothing to reverse.
type sagaStep struct {
	name       string
	apply      func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// runSaga executes steps in order. On failure it compensates the already
// applied steps in reverse order and returns the original error joined with
// any compensation errors.
func runSaga(ctx context.Context, logg *logger.Logger, steps []sagaStep) error {
	for i, step := range steps {
		if err := step.apply(ctx); err != nil {
			stepErr := fmt.Errorf("deployment step %s: %w", step.name, err)
			var compErrs error
			for j := i - 1; j >= 0; j-- {
				if steps[j].compensate == nil {
					continue
				}
				if cerr := steps[j].compensate(ctx); cerr != nil {
					compErrs = multierr.Append(compErrs,
						fmt.Errorf("compensating step %s: %w", steps[j].name, cerr))
				}
			}
			if compErrs != nil {
				if logg != nil {
					logg.Error(ctx, "deployment rollback left partial state", compErrs)
				}
				return multierr.Append(stepErr, compErrs)
			}
			return stepErr
		}
	}
	return nil
}
