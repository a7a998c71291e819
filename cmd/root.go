package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/app"
	"github.com/JakeFAU/jobscout-crawler/internal/config"
	"github.com/JakeFAU/jobscout-crawler/internal/crawler"
	"github.com/JakeFAU/jobscout-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what the commands need from the application container. Tests swap
// in a fake through newApp.
type App interface {
	Run(ctx context.Context) (crawler.RunSummary, error)
	Close(ctx context.Context)
	Logger() *zap.Logger
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "jobscout",
		Short: "Scrapes job listings from jobscout24.ch into CSV.",
		Long: `jobscout walks every results page of a jobscout24.ch search, visits each
job detail page, and exports the collected postings as CSV to a local path
or a gs:// object. Runs can optionally be persisted to Postgres and announced
on a Pub/Sub topic.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.NewWithLevel(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	cmd.PersistentFlags().Bool("debug", false, "development logging")
	_ = v.BindPFlag("logging.development", cmd.PersistentFlags().Lookup("debug"))

	cmd.AddCommand(newCrawlCmd(v))
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if fallback, err := logging.New(false); err == nil {
		zap.ReplaceGlobals(fallback)
	}
	if err := newRootCmd(config.NewViper()).Execute(); err != nil {
		zap.L().Fatal("command execution failed", zap.Error(err))
	}
}
