package harvester

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoHarvester = (*client)(nil)

// AutoHarvester provides controls for periodic harvests of every
// registered source.
type AutoHarvester interface {
	// AutoHarvestOn begins periodic harvests
	AutoHarvestOn() error

	// AutoHarvestOff stops periodic harvests
	AutoHarvestOff() error
}

// AutoHarvestOn begins periodic harvests.
func (c *client) AutoHarvestOn() error {
	if c.options.autoHarvestInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoHarvestInterval",
			Value:   c.options.autoHarvestInterval,
			Message: "harvest interval must be positive",
		}
	}

	// Stop any running loop before starting a new one
	if err := c.AutoHarvestOff(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Recreate stopCh since it was closed in AutoHarvestOff
	c.stopCh = make(chan struct{})
	c.ticker = time.NewTicker(c.options.autoHarvestInterval)

	ctx, cancel := context.WithCancel(context.Background())
	c.harvestStop = cancel

	go func(parentCtx context.Context, ticker *time.Ticker, stopCh chan struct{}) {
		for {
			select {
			case <-ticker.C:
				runCtx, runCancel := context.WithTimeout(parentCtx, constants.HarvestTimeout)
				results, err := c.HarvestAll(runCtx)
				runCancel()

				for _, result := range results {
					logging.Info().Msg(result.Summary())
				}
				if err != nil {
					if stderrors.Is(err, context.Canceled) {
						return
					}
					logging.Error().Err(err).Msg("Auto-harvest failed")
				}
			case <-parentCtx.Done():
				return
			case <-stopCh:
				return
			}
		}
	}(ctx, c.ticker, c.stopCh)

	return nil
}

// AutoHarvestOff stops periodic harvests.
func (c *client) AutoHarvestOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.harvestStop != nil {
		c.harvestStop()
		c.harvestStop = nil
	}
	select {
	case <-c.stopCh:
		// Already closed
	default:
		close(c.stopCh)
	}
	return nil
}
