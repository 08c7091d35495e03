package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the daily usage report on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
}

func New(spec string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job and starts the cron loop. Without a report
// function it does nothing.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		log.Println("report function not set, scheduler will not generate reports")
		return nil
	}
	if s.spec == "" {
		return errors.New("empty report schedule")
	}

	_, err := s.cron.AddFunc(s.spec, s.runReport)
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("scheduler started, usage report schedule %q (UTC)", s.spec)
	return nil
}

func (s *Scheduler) runReport() {
	log.Println("triggered usage report generation")
	if err := s.reportFunc(s.ctx); err != nil {
		log.Printf("usage report generation failed: %v", err)
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
