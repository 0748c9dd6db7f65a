package checkpoint

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"storebot/internal/conversation"
)

// Source yields a consistent copy of the conversation state.
type Source interface {
	Snapshot() map[string][]conversation.Entry
}

// Sink durably stores a snapshot.
type Sink interface {
	Save(map[string][]conversation.Entry) error
}

// Checkpointer flushes the conversation store to durable storage on a fixed
// cadence. A failed flush is logged and swallowed; the next successful one
// supersedes the last good checkpoint.
type Checkpointer struct {
	cron     *cron.Cron
	source   Source
	sink     Sink
	interval time.Duration
	mu       sync.Mutex
}

func New(source Source, sink Sink, interval time.Duration) *Checkpointer {
	return &Checkpointer{
		cron:     cron.New(),
		source:   source,
		sink:     sink,
		interval: interval,
	}
}

func (c *Checkpointer) Start() error {
	_, err := c.cron.AddFunc(fmt.Sprintf("@every %s", c.interval), func() {
		if err := c.Flush(); err != nil {
			log.Printf("checkpoint failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule checkpoint: %w", err)
	}
	c.cron.Start()
	log.Printf("checkpointer started, flushing every %s", c.interval)
	return nil
}

// Flush takes a snapshot and writes it out. The snapshot is taken outside
// any store mutation lock, so foreground traffic never waits on disk I/O.
func (c *Checkpointer) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.source.Snapshot()
	if err := c.sink.Save(snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Stop halts the schedule, waits for an in-flight flush, and writes one
// final checkpoint so shutdown keeps everything up to the last message.
func (c *Checkpointer) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	if err := c.Flush(); err != nil {
		log.Printf("final checkpoint failed: %v", err)
	}
	log.Printf("checkpointer stopped")
}
