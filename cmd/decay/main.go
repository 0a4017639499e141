// Package main — разовый запуск затухания баллов (например, из cron хоста
// или вручную после простоя). Использует ту же конфигурацию, что и orbitd.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/app"
	"serotonyl.ru/orbit-points/internal/config"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.AppStore == config.StoreMemory {
		log.Fatal("Разовый запуск затухания не имеет смысла с APP_STORE=memory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewDecay(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	report, err := application.Decay.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Затухание завершилось с ошибкой")
		application.Close()
		os.Exit(1)
	}
	log.WithFields(log.Fields{
		"candidates":     report.Candidates,
		"decayed":        report.Decayed,
		"skipped":        report.Skipped,
		"failed":         report.Failed,
		"points_removed": report.PointsRemoved,
	}).Info("Готово")
}
