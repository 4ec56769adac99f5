package poller

import (
	"time"

	cfg "github.com/tamzrod/modbus-master/internal/config"
)

// Build constructs a Poller from validated config.
func Build(c *cfg.Config, client Client) (*Poller, error) {
	reads := make([]ReadBlock, 0, len(c.Reads))
	for _, r := range c.Reads {
		reads = append(reads, ReadBlock{
			FC:       r.FC,
			Address:  r.Address,
			Quantity: r.Quantity,
		})
	}

	return New(
		Config{
			Interval: time.Duration(c.Poll.IntervalMs) * time.Millisecond,
			Reads:    reads,
		},
		client,
	)
}
