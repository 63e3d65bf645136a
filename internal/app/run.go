package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"smartfollow/internal/alerting"
	"smartfollow/internal/scheduler"
)

// RunOptions configure watch mode.
type RunOptions struct {
	Token string
}

// Run executes the periodic watch loop: each cycle re-verifies pending
// candidates, re-scores the WHITE set, and alerts on addresses that
// newly enter the ranked set. Already-alerted addresses are remembered
// for the lifetime of the process.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	if opts.Token == "" {
		return errors.New("token address is required")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Watch.Interval,
		AlignToStart:   a.Config.Watch.AlignToBucket,
		StartupDelay:   a.Config.Watch.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	notifier := a.newNotifier()
	alerted := make(map[string]struct{})

	a.Logger.Info().Str("token", opts.Token).Dur("interval", a.Config.Watch.Interval).Msg("starting watch mode")
	err := sched.Run(ctx, func(ctx context.Context, cycle time.Time) error {
		return a.watchCycle(ctx, opts.Token, cycle, notifier, alerted)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch mode terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch mode stopped")
	return nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) watchCycle(ctx context.Context, token string, cycle time.Time, notifier alerting.Notifier, alerted map[string]struct{}) error {
	if _, err := a.Classify(ctx); err != nil {
		return err
	}

	rows, err := a.Rank(ctx, RankOptions{Token: token})
	if err != nil {
		return err
	}
	if notifier == nil {
		return nil
	}

	minWinRate := a.Config.Alerting.MinWinRate
	fresh := make([]alerting.Qualified, 0)
	for _, row := range rows {
		if row.Score.Metrics.WinRate < minWinRate {
			continue
		}
		if _, seen := alerted[row.Score.Addr]; seen {
			continue
		}
		alerted[row.Score.Addr] = struct{}{}
		fresh = append(fresh, alerting.Qualified{
			Addr:       row.Score.Addr,
			WinRate:    row.Score.Metrics.WinRate,
			RoundCount: row.Score.Metrics.RoundCount,
			TotalPnL:   row.Score.Metrics.TotalPnL,
			Balance:    row.Score.Balance,
		})
	}
	if len(fresh) == 0 {
		return nil
	}

	return notifier.Notify(ctx, alerting.Notification{
		Cycle:     cycle,
		Chain:     ChainSolana,
		Token:     token,
		Qualified: fresh,
	})
}
