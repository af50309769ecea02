package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"familytasks/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchServer string
	watchFamily string
	watchToken  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the client-side fallback scheduler for one family against a server",
	Long: `watch calls the server's cron endpoint for one family now, at the next local
midnight and every 24 hours after that. SIGHUP or SIGUSR1 triggers an extra check,
which is skipped when today already succeeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchFamily == "" {
			return errors.New("--family is required")
		}
		token := watchToken
		if token == "" {
			token = cfg.Cron.Secret
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		client := service.NewCronClient(watchServer, token)
		fallback := service.NewFallbackScheduler(client, watchFamily, loc, log)

		pokes := make(chan os.Signal, 1)
		signal.Notify(pokes, syscall.SIGHUP, syscall.SIGUSR1)
		defer signal.Stop(pokes)

		ctx := cmd.Context()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case sig := <-pokes:
					log.Info("Re-check requested", zap.String("signal", sig.String()))
					fallback.Poke()
				}
			}
		}()

		log.Info("Watching daily tasks",
			zap.String("server", watchServer),
			zap.String("family_id", watchFamily),
		)
		fallback.Run(ctx)
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", "http://localhost:8080", "base URL of the familytasks server")
	watchCmd.Flags().StringVarP(&watchFamily, "family", "f", "", "family to keep generated")
	watchCmd.Flags().StringVar(&watchToken, "token", "", "cron bearer token (defaults to cron.secret)")
}
