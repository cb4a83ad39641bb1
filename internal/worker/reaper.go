package worker

import (
	"sync"
	"time"

	"github.com/sujalbistaa/whisperwall/internal/log"
)

// Expirer deletes whispers whose time has run out.
type Expirer interface {
	ReapExpired(now time.Time) (int64, error)
}

// Reaper periodically purges expired whispers. Reads already filter expired
// rows out, so the reaper only keeps the tables small.
type Reaper struct {
	target   Expirer
	ticker   *time.Ticker
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.Mutex
	active   bool

	// Now is the clock; tests override it.
	Now func() time.Time
}

func NewReaper(target Expirer) *Reaper {
	return &Reaper{target: target, Now: time.Now}
}

// Start runs a sweep every interval. A non-positive interval leaves the
// reaper off.
func (r *Reaper) Start(interval time.Duration) {
	if interval <= 0 {
		log.Info.Println("Whisper reaper disabled")
		return
	}
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		log.Warn.Println("Reaper: already active")
		return
	}
	r.active = true
	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	r.ticker = time.NewTicker(interval)
	r.mu.Unlock()

	go func() {
		defer close(r.doneChan)
		for {
			select {
			case <-r.ticker.C:
				r.Sweep()
			case <-r.stopChan:
				r.ticker.Stop()
				return
			}
		}
	}()
	log.Info.Printf("Whisper reaper started with interval: %v", interval)
}

// Stop waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	stop, done := r.stopChan, r.doneChan
	r.mu.Unlock()

	close(stop)
	<-done
	log.Info.Println("Whisper reaper stopped")
}

func (r *Reaper) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Sweep runs one purge and returns how many whispers went.
func (r *Reaper) Sweep() int64 {
	n, err := r.target.ReapExpired(r.Now())
	if err != nil {
		log.Error.Printf("Reaper: sweep failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Info.Printf("Reaper: removed %d expired whispers", n)
	}
	return n
}
