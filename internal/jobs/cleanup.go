package jobs

import (
	"log"
	"time"

	"github.com/foodloop-labs/foodloop-backend/internal/services"
)

const cleanupInterval = 5 * time.Minute

// CleanupJob periodically purges expired verification codes so the store
// does not accumulate dead records between verify calls.
type CleanupJob struct {
	store     services.OTPStore
	interval  time.Duration
	isRunning bool
	stop      chan struct{}
}

// NewCleanupJob creates a new cleanup job scheduler
func NewCleanupJob(store services.OTPStore) *CleanupJob {
	return &CleanupJob{
		store:    store,
		interval: cleanupInterval,
		stop:     make(chan struct{}),
	}
}

// Start begins the cleanup loop
func (j *CleanupJob) Start() {
	if j.isRunning {
		log.Println("Cleanup job already running")
		return
	}
	j.isRunning = true
	log.Println("Starting OTP cleanup job...")

	go j.run()
}

// Stop halts the cleanup loop
func (j *CleanupJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	log.Println("Stopping OTP cleanup job...")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if dropped := j.store.DeleteExpired(time.Now()); dropped > 0 {
				log.Printf("🧹 Purged %d expired verification codes", dropped)
			}
		case <-j.stop:
			return
		}
	}
}
