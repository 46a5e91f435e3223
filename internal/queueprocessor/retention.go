package queueprocessor

import "time"

// StartRetentionSweep runs PruneOld on an interval until stop is closed,
// implementing spec.md §4.3's "completed/failed rows older than a
// retention window ... removed by a periodic sweep". Runs in its own
// goroutine; call from the same place that calls Processor.Start.
func (p *Processor) StartRetentionSweep(retention time.Duration, interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n, err := p.store.PruneOld(retention)
				if err != nil {
					p.log.Error("queue retention sweep failed", map[string]interface{}{"error": err})
					continue
				}
				if n > 0 {
					p.log.Info("pruned old queue rows", map[string]interface{}{"count": n})
				}
			}
		}
	}()
}
