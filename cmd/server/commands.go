package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/config"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/handler"
	"github.com/habitlog/internal/logger"
	"github.com/habitlog/internal/router"
	"github.com/habitlog/internal/seed"
	"github.com/habitlog/internal/service"
	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"
)

// runtime 在各子命令之间共享已加载的配置与依赖
type runtime struct {
	cfg    config.AppConfig
	logger *log.Logger
	loc    *time.Location
}

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:          "habitlog",
		Short:        "Habit tracking API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(configDir)
			if err != nil {
				return err
			}
			return serve(rt)
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing habitlog.yaml")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := bootstrap(configDir)
				if err != nil {
					return err
				}
				return serve(rt)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create demo habits with recent logs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := bootstrap(configDir)
				if err != nil {
					return err
				}
				summary, err := seed.Run(cmd.Context(), db.DB, service.Today(time.Now(), rt.loc), rt.logger)
				if err != nil {
					return err
				}
				if summary.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "habits already exist, nothing to do")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d habits with %d logs\n", summary.Habits, summary.Logs)
				return nil
			},
		},
		newToggleCmd(&configDir),
		newStatsCmd(&configDir),
	)

	return root
}

func newToggleCmd(configDir *string) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "toggle <habit-id>",
		Short: "Toggle completion of a habit for a date (default today)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHabitID(args[0])
			if err != nil {
				return err
			}
			rt, err := bootstrap(*configDir)
			if err != nil {
				return err
			}

			day := service.Today(time.Now(), rt.loc)
			if date != "" {
				if day, err = service.ParseDay(date); err != nil {
					return err
				}
			}

			result, err := newTracker(rt).Toggle(cmd.Context(), id, day)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", service.FormatDay(result.Date), result.State)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "calendar date as YYYY-MM-DD")
	return cmd
}

func newStatsCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <habit-id>",
		Short: "Print streak and completion rates for a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHabitID(args[0])
			if err != nil {
				return err
			}
			rt, err := bootstrap(*configDir)
			if err != nil {
				return err
			}

			stats, err := newTracker(rt).Stats(cmd.Context(), id, service.Today(time.Now(), rt.loc))
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), stats)
		},
	}
}

func bootstrap(configDir string) (*runtime, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	l, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// 初始化数据库
	gormLog := gormlogger.New(l.WithPrefix("gorm"), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	if err := db.Init(cfg.DatabasePath, gormLog); err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return &runtime{cfg: cfg, logger: l, loc: loc}, nil
}

func serve(rt *runtime) error {
	gin.SetMode(rt.cfg.GinMode)

	r := router.SetupRouter(handler.Settings{
		Location:        rt.loc,
		StreakChunkDays: rt.cfg.StreakChunkDays,
		Logger:          rt.logger,
	})

	rt.logger.Info("server listening", "addr", rt.cfg.ListenAddr, "database", rt.cfg.DatabasePath, "timezone", rt.loc.String())
	if err := r.Run(rt.cfg.ListenAddr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

func newTracker(rt *runtime) *service.Tracker {
	return service.NewTracker(service.NewGormLogStore(db.DB), rt.cfg.StreakChunkDays, rt.logger)
}

func parseHabitID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid habit id %q", raw)
	}
	return uint(id), nil
}

func writeStats(w io.Writer, stats *service.HabitStats) error {
	type day struct {
		Date string `json:"date"`
		Done bool   `json:"done"`
	}
	days := make([]day, 0, len(stats.Last7))
	for _, d := range stats.Last7 {
		days = append(days, day{Date: service.FormatDay(d.Date), Done: d.Done})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"current_streak": stats.CurrentStreak,
		"longest_streak": stats.LongestStreak,
		"last7":          days,
		"rate7":          stats.Rate7,
		"rate30":         stats.Rate30,
	})
}
