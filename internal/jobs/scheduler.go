// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание затухания баллов.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/features/decay"
)

// DecayRunner — decay.Service.
type DecayRunner interface {
	Run(ctx context.Context) (*decay.Report, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	runner   DecayRunner
	schedule string
	loc      *time.Location
	entry    cron.EntryID
}

// NewScheduler создаёт планировщик в часовом поясе timezone.
// Прогон, не успевший завершиться к следующему срабатыванию, не дублируется.
func NewScheduler(runner DecayRunner, schedule, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("некорректный DECAY_TIMEZONE %q: %w", timezone, err)
	}

	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{cron: c, runner: runner, schedule: schedule, loc: loc}, nil
}

// Start регистрирует задачи и запускает cron. ctx живёт до остановки сервиса.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		log.Info("[CRON] Затухание баллов")
		if _, err := s.runner.Run(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка затухания")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректный DECAY_SCHEDULE %q: %w", s.schedule, err)
	}
	s.entry = id

	s.cron.Start()
	log.WithFields(log.Fields{
		"schedule": s.schedule,
		"timezone": s.loc.String(),
		"next":     s.Next(),
	}).Info("Планировщик задач запущен")
	return nil
}

// Next — время следующего запуска затухания (нулевое, если не запущен).
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop останавливает планировщик и ждёт текущий прогон.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
