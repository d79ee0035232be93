package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/study-share/internal/notify"
	"github.com/spec-kit/study-share/internal/persistence"
)

var requeueMax int

// requeueCmd retries failed welcome mail once
var requeueCmd = &cobra.Command{
	Use:   "requeue-welcome",
	Short: "Retry failed welcome mail",
	Long: `Take up to --max failed welcome mails from Redis and send them again.
Mails that fail again go back on the list until they run out of attempts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if requeueMax <= 0 {
			return fmt.Errorf("--max must be positive")
		}
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		redis := persistence.NewRedis(env.cfg.Redis, env.logger)
		defer redis.Close()
		if err := redis.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		store := notify.NewRedisFailureStore(redis.Client, "")

		transport, err := notify.NewSMTPTransport(env.cfg.SMTP, env.cfg.Notification.SendTimeout())
		if err != nil {
			return err
		}
		dispatcher := notify.NewDispatcher(env.cfg.Notification, notify.DispatcherDependencies{
			Transport: transport,
			Failures:  store,
			Logger:    env.logger,
		})

		requeued, requeueErr := notify.Requeue(cmd.Context(), store, dispatcher, requeueMax)

		ctx, cancel := context.WithTimeout(context.Background(), env.cfg.Notification.SendTimeout()+5*time.Second)
		defer cancel()
		if err := dispatcher.Close(ctx); err != nil {
			return err
		}
		if requeueErr != nil {
			return requeueErr
		}

		left, err := store.Len(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d welcome mail(s); %d still failed\n", requeued, left)
		return nil
	},
}

func init() {
	requeueCmd.Flags().IntVar(&requeueMax, "max", 50, "Maximum number of failed mails to retry")
	rootCmd.AddCommand(requeueCmd)
}
