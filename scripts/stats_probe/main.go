// Command stats_probe runs one statistics aggregation against the scheduling platform and
// prints the report, without touching the database or the cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/internal/service"
	"github.com/noah-isme/teacher-stats-api/pkg/config"
	"github.com/noah-isme/teacher-stats-api/pkg/export"
	"github.com/noah-isme/teacher-stats-api/pkg/scheduleapi"
)

type stageLogger struct {
	logger *zap.Logger
}

func (s stageLogger) OnStage(stage service.Stage) {
	s.logger.Info("stage", zap.String("stage", string(stage)))
}

func (s stageLogger) OnFinishedClasses(count int) {
	s.logger.Info("finished classes", zap.Int("count", count))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		baseURL     string
		token       string
		year        int
		month       int
		startDate   string
		endDate     string
		concurrency int
		format      string
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "base-url", cfg.ScheduleAPI.BaseURL, "Scheduling platform base URL")
	flag.StringVar(&token, "token", os.Getenv("SCHEDULE_TOKEN"), "Scheduling platform token (defaults to $SCHEDULE_TOKEN)")
	flag.IntVar(&year, "year", 0, "Year of a monthly run")
	flag.IntVar(&month, "month", 0, "Month of a monthly run")
	flag.StringVar(&startDate, "start", "", "Start date of a range run (YYYY-MM-DD)")
	flag.StringVar(&endDate, "end", "", "End date of a range run (YYYY-MM-DD)")
	flag.IntVar(&concurrency, "concurrency", cfg.Stats.Concurrency, "Concurrent diary requests")
	flag.StringVar(&format, "format", "json", "Output: json, csv or pdf")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall deadline")
	flag.Parse()

	logr, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if token == "" {
		logr.Fatal("a token is required")
	}
	if err := service.ValidateTokenFormat(token); err != nil {
		logr.Fatal("token is not a JWT", zap.Error(err))
	}

	loc := cfg.Stats.Location()
	spec, err := resolvePeriod(year, month, startDate, endDate, loc)
	if err != nil {
		logr.Fatal("invalid period", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := scheduleapi.New(scheduleapi.Config{
		BaseURL:      baseURL,
		ListTimeout:  cfg.ScheduleAPI.ListTimeout,
		DiaryTimeout: cfg.ScheduleAPI.DiaryTimeout,
	})
	svc := service.NewStatisticsService(client, service.StatisticsConfig{
		UnitRate:     cfg.Stats.UnitRate,
		Concurrency:  cfg.Stats.Concurrency,
		MaxRangeDays: cfg.Stats.MaxRangeDays,
		Location:     loc,
	}, nil, logr)

	report, err := svc.Aggregate(ctx, token, spec, service.AggregateOptions{
		Concurrency: concurrency,
		Observer:    stageLogger{logger: logr},
	})
	if err != nil {
		logr.Fatal("aggregation failed", zap.Error(err))
	}
	models.SortAbsencesNewestFirst(report.AbsentStudents)

	if err := write(report, format, loc); err != nil {
		logr.Fatal("failed to write report", zap.Error(err))
	}
}

func resolvePeriod(year, month int, startDate, endDate string, loc *time.Location) (models.PeriodSpec, error) {
	if startDate != "" || endDate != "" {
		start, err := time.ParseInLocation(time.DateOnly, startDate, loc)
		if err != nil {
			return models.PeriodSpec{}, fmt.Errorf("start: %w", err)
		}
		end, err := time.ParseInLocation(time.DateOnly, endDate, loc)
		if err != nil {
			return models.PeriodSpec{}, fmt.Errorf("end: %w", err)
		}
		return models.RangePeriod(start, end), nil
	}
	if year == 0 || month == 0 {
		now := time.Now().In(loc)
		return models.MonthlyPeriod(now.Year(), int(now.Month())), nil
	}
	return models.MonthlyPeriod(year, month), nil
}

func write(report *models.StatisticsReport, format string, loc *time.Location) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	file, err := service.NewExportService(nil, nil, loc).AbsenceRoster(report, f)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(file.Content)
	return err
}
