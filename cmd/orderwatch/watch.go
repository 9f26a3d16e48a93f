package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/orderwatch/internal/bootstrap"
	"github.com/creamcroissant/orderwatch/internal/poller"
	"github.com/creamcroissant/orderwatch/internal/tui"
)

var watchFlags struct {
	redirectStatus string
	paymentIntent  string
	interval       time.Duration
	timeout        time.Duration
	tui            bool
}

var watchCmd = &cobra.Command{
	Use:   "watch <orderID>",
	Short: "Verify an order's payment status until it settles",
	Long: `Checks the order immediately, then every poll interval until the payment
status is terminal or the timeout elapses. Exits 0 only when the order is PAID.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.redirectStatus, "redirect-status", "", "redirect_status received from the payment provider")
	f.StringVar(&watchFlags.paymentIntent, "payment-intent", "", "payment intent id received from the payment provider")
	f.DurationVar(&watchFlags.interval, "interval", 0, "poll interval (default from config)")
	f.DurationVar(&watchFlags.timeout, "timeout", 0, "give up after this long (default from config)")
	f.BoolVar(&watchFlags.tui, "tui", false, "show an interactive terminal view")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	if watchFlags.tui {
		logOut = io.Discard
	}
	logger := newLogger(cfg, logOut)

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}

	opts := poller.Options{
		RedirectStatus:  watchFlags.redirectStatus,
		PaymentIntentID: watchFlags.paymentIntent,
		PollInterval:    firstPositive(watchFlags.interval, cfg.Poll.Interval),
		Timeout:         firstPositive(watchFlags.timeout, cfg.Poll.Timeout),
		Logger:          logger,
		Metrics:         infra.Metrics,
	}

	var final poller.State
	if watchFlags.tui {
		final, err = watchTUI(infra, args[0], opts)
	} else {
		final, err = watchPlain(cmd, infra, args[0], opts)
	}
	if err != nil {
		return err
	}
	if !final.Paid() {
		return &exitError{code: exitCode(final)}
	}
	return nil
}

func watchPlain(cmd *cobra.Command, infra *bootstrap.Infrastructure, orderID string, opts poller.Options) (poller.State, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var last poller.State
	opts.OnUpdate = func(st poller.State) {
		if st.Phase == last.Phase && st.Status == last.Status && st.Error == last.Error {
			return
		}
		last = st
		fmt.Fprintln(out, formatState(st))
	}

	sub := poller.Start(ctx, infra.Client, orderID, opts)
	<-sub.Done()
	final := sub.State()
	if ctx.Err() != nil && !final.Phase.Final() {
		fmt.Fprintln(out, "interrupted")
	}
	return final, nil
}

func watchTUI(infra *bootstrap.Infrastructure, orderID string, opts poller.Options) (poller.State, error) {
	watcher := poller.NewWatcher(infra.Client, opts)
	defer watcher.Stop()

	p := tea.NewProgram(tui.NewModel(watcher, orderID, poller.Options{
		RedirectStatus:  opts.RedirectStatus,
		PaymentIntentID: opts.PaymentIntentID,
	}), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return poller.State{}, fmt.Errorf("run tui: %w", err)
	}
	model, ok := result.(tui.Model)
	if !ok {
		return poller.State{}, fmt.Errorf("run tui: unexpected model %T", result)
	}
	return model.State(), nil
}

func formatState(st poller.State) string {
	line := fmt.Sprintf("%s  %-12s", time.Now().Format(time.TimeOnly), st.Phase)
	if st.Status != "" {
		line += "  status=" + st.Status.String()
	}
	if st.Error != "" {
		line += "  error=" + st.Error
	}
	return line
}

// exitCode maps how a session ended to a process exit status.
func exitCode(st poller.State) int {
	switch st.Phase {
	case poller.PhaseSettled:
		return 2
	case poller.PhaseTimedOut:
		return 3
	case poller.PhaseErrored:
		return 4
	}
	return 130
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
