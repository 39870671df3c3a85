package render

import (
	"context"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/sim"
)

// Console logs every frame at debug level and status transitions at info.
type Console struct {
	log  logging.Logger
	last sim.Status
}

func NewConsole(log logging.Logger) *Console {
	if log == nil {
		log = logging.Noop()
	}
	return &Console{log: log}
}

func (c *Console) Render(ctx context.Context, f sim.Frame) error {
	c.log.Debug(ctx, "frame",
		logging.Uint64("tick", f.Tick),
		logging.Any("links", f.Links),
		logging.Any("path", f.Path),
		logging.Float("progress", f.Progress),
	)
	if f.Status == c.last {
		return nil
	}
	c.last = f.Status
	switch f.Status {
	case sim.StatusNoPath:
		c.log.Info(ctx, "no connections/path", logging.Uint64("tick", f.Tick))
	case sim.StatusStarted:
		c.log.Info(ctx, "path established",
			logging.Uint64("tick", f.Tick),
			logging.Any("path", f.Path),
			logging.String("transfer_id", f.TransferID),
		)
	case sim.StatusComplete:
		c.log.Info(ctx, "transfer complete",
			logging.Uint64("tick", f.Tick),
			logging.String("transfer_id", f.TransferID),
		)
	}
	return nil
}
