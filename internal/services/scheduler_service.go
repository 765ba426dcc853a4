package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DigestSender is the outbound side of the transport the scheduler needs
type DigestSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup any) error
}

// SchedulerService pushes the supervisor digest to every allow-listed user
// at a configured wall-clock time. It shares only the report store with
// request handling; per-user session state is never touched.
type SchedulerService struct {
	scheduler  gocron.Scheduler
	reports    *ReportService
	digest     *DigestService
	sender     DigestSender
	recipients []int64

	cronExpression string
	timezone       string
}

// NewSchedulerService creates a digest scheduler. The cron expression is
// the standard five-field form; timezone is an IANA zone name.
func NewSchedulerService(reports *ReportService, digest *DigestService, sender DigestSender, recipients []int64, cronExpression, timezone string) (*SchedulerService, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronExpression); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &SchedulerService{
		scheduler:      scheduler,
		reports:        reports,
		digest:         digest,
		sender:         sender,
		recipients:     recipients,
		cronExpression: cronExpression,
		timezone:       timezone,
	}, nil
}

// Start registers the digest job and starts the scheduler
func (s *SchedulerService) Start() error {
	// CRON_TZ prefix pins the job to the configured zone regardless of
	// the host clock.
	cronWithTZ := fmt.Sprintf("CRON_TZ=%s %s", s.timezone, s.cronExpression)

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronWithTZ, false),
		gocron.NewTask(s.RunDigest),
		gocron.WithName("supervisor-digest"),
	)
	if err != nil {
		return fmt.Errorf("failed to create digest job: %w", err)
	}

	s.scheduler.Start()

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if schedule, err := parser.Parse(s.cronExpression); err == nil {
		if loc, locErr := time.LoadLocation(s.timezone); locErr == nil {
			log.Printf("📅 Digest scheduled (cron: %s, tz: %s), next run: %v",
				s.cronExpression, s.timezone, schedule.Next(time.Now().In(loc)))
		}
	}

	return nil
}

// Stop stops the scheduler
func (s *SchedulerService) Stop() error {
	log.Println("⏹️ Stopping scheduler service...")
	return s.scheduler.Shutdown()
}

// RunDigest builds the digest from every stored report and pushes it to
// each recipient independently. A failed send is logged and skipped; it
// never blocks delivery to the remaining recipients.
func (s *SchedulerService) RunDigest() {
	runID := uuid.New().String()[:8]
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Printf("▶️ [DIGEST:%s] Running scheduled digest for %d recipients", runID, len(s.recipients))

	reports, err := s.reports.ListAll("")
	if err != nil {
		log.Printf("❌ [DIGEST:%s] Failed to list reports: %v", runID, err)
		return
	}

	text := s.digest.Format(reports, false)

	delivered := 0
	for _, chatID := range s.recipients {
		if err := s.sender.SendMessage(ctx, chatID, text, nil); err != nil {
			log.Printf("⚠️ [DIGEST:%s] Failed to deliver to %d: %v", runID, chatID, err)
			continue
		}
		delivered++
	}

	log.Printf("✅ [DIGEST:%s] Delivered to %d/%d recipients (%d reports)",
		runID, delivered, len(s.recipients), len(reports))
}
