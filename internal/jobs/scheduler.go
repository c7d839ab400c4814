package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper drops idle state. The per-IP rate limiters and the statistics
// cache implement it.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

type Scheduler struct {
	cron     *cron.Cron
	schedule string
	sweepers map[string]Sweeper
	idle     time.Duration
}

func NewScheduler(schedule string, sweepers map[string]Sweeper) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		sweepers: sweepers,
		idle:     3 * time.Minute,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithField("schedule", s.schedule).Info("Job scheduler started")
	return nil
}

// Stop waits up to five seconds for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		logrus.Warn("Job scheduler stop timed out")
	}
}

func (s *Scheduler) sweep() {
	for name, sw := range s.sweepers {
		if removed := sw.Sweep(s.idle); removed > 0 {
			logrus.WithFields(logrus.Fields{
				"sweeper": name,
				"removed": removed,
			}).Debug("Swept idle entries")
		}
	}
}

