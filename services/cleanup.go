package services

import (
	"context"
	"log"
	"time"
)

// CleanupRunner 周期执行过期内容清理和位置回收
type CleanupRunner struct {
	chat     *ChatService
	world    *WorldService
	interval time.Duration
	staleAge time.Duration
}

func NewCleanupRunner(chat *ChatService, world *WorldService, interval time.Duration) *CleanupRunner {
	return &CleanupRunner{
		chat:     chat,
		world:    world,
		interval: interval,
		staleAge: 24 * time.Hour,
	}
}

// Run 阻塞运行直到 ctx 取消，通常放在独立 goroutine 里
func (r *CleanupRunner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce()
		}
	}
}

func (r *CleanupRunner) RunOnce() {
	deleted, err := r.chat.CleanupExpiredContent()
	if err != nil {
		log.Printf("Cleanup of expired chat content failed: %v", err)
	} else if deleted > 0 {
		log.Printf("Cleanup removed %d expired rows", deleted)
	}

	pruned, err := r.world.PruneStalePositions(r.staleAge)
	if err != nil {
		log.Printf("Prune of stale positions failed: %v", err)
	} else if pruned > 0 {
		log.Printf("Pruned %d stale player positions", pruned)
	}
}
