package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradewind/internal/app"
	"tradewind/internal/config"
	"tradewind/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "tradewind",
		Short: "Multi-agent trading pipeline",
		Long:  "tradewind runs a fixed analysis pipeline (technical/sentiment/macro/news → strategist → risk gate → executor) on a fixed cycle, with circuit breaker protection and an operator HTTP API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			// 未显式传 -c 时允许用环境变量指定配置路径。
			if !cmd.Flags().Changed("config") {
				if env := os.Getenv("TRADEWIND_CONFIG"); env != "" {
					cfgPath = env
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cfgPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/config.yaml", "configuration file path")

	rootCmd.AddCommand(newCycleCmd(&cfgPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func runService(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	a, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("tradewind %s starting tickers=%v interval=%ds",
		version, cfg.Trading.Tickers, cfg.Trading.CycleIntervalSeconds)
	return a.Run(ctx)
}

// newCycleCmd 对单个标的跑一个周期后退出，便于排查。
func newCycleCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle [TICKER]",
		Short: "Run one pipeline cycle for a ticker and print the final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.SetLevel(cfg.App.LogLevel)

			a, err := app.Build(cfg)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			defer a.Close(context.Background())

			final, err := a.RunCycle(ctx, args[0])
			if err != nil {
				return err
			}
			if final == nil {
				fmt.Println("cycle skipped (circuit breaker tripped)")
				return nil
			}
			out, _ := json.MarshalIndent(final, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tradewind %s\n", version)
		},
	}
}
