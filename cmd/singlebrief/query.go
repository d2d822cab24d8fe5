package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/config"
	teamclient "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/client"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/tui"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/uistate"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/workflow"
)

func runQuery(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("query")
	question := fs.StringP("question", "q", "", "start with this question filled in")
	simulated := fs.Bool("simulated", false, "use simulated analysis and replies regardless of ANALYSIS_MODE")
	theme := fs.String("theme", string(uistate.ThemeSystem), "color theme: light, dark or system")
	if err := fs.Parse(args); err != nil {
		return err
	}
	th, err := uistate.ParseTheme(*theme)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{profile: *profile, quiet: true})
	if err != nil {
		return err
	}
	defer a.close()

	store := uistate.New(uistate.Options{Theme: th})
	unsubscribe := a.session.Subscribe(uistate.SessionNotifier(store))
	defer unsubscribe()

	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return errNotSignedIn
	}
	a.session.Start(ctx)

	mode := a.cfg.AnalysisMode
	if *simulated {
		mode = config.AnalysisSimulated
	}
	svc, transport := a.queryBackends(ctx, mode, store)
	if transport != nil {
		defer transport.Close()
	}

	log := a.logger.Named("workflow")
	flow := workflow.NewFlow(workflow.FlowOptions{
		Analysis:  svc,
		Transport: transport,
		Timeout:   a.cfg.Timeout(),
		Logger:    log,
		OnComplete: func(ctx context.Context, ex workflow.Exchange) error {
			log.Info("query completed",
				zap.String("flow_id", ex.FlowID),
				zap.Int("recipients", len(ex.Recipients)),
				zap.Int("messages", len(ex.Messages)),
			)
			return nil
		},
	})
	defer flow.Close()
	if q := strings.TrimSpace(*question); q != "" {
		flow.SetQuestion(q)
	}

	team := teamclient.New(a.cfg.APIBaseURL, a.cfg.Timeout(), a.session, restOptions(a.cfg, a.logger)...)
	model := tui.New(tui.Options{
		Flow: flow,
		Members: func(ctx context.Context) ([]analysis.Recipient, error) {
			members, err := team.ActiveMembers(ctx)
			if err != nil {
				return nil, err
			}
			return workflow.RecipientsFromMembers(members), nil
		},
		Store:   store,
		Session: a.session,
	})
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// queryBackends returns the analysis service and chat transport for mode. A chat endpoint that
// cannot be reached leaves the transport nil; sends are then marked failed and can be retried.
func (a *app) queryBackends(ctx context.Context, mode string, store *uistate.Store) (analysis.Service, chat.Transport) {
	if mode == config.AnalysisSimulated {
		return analysis.NewSimulatedService(a.cfg.SimulatedDelay()),
			chat.NewLoopback(chat.AcknowledgeResponder, chat.WithReplyDelay(a.cfg.SimulatedDelay()/2))
	}

	svc := analysis.NewHTTPService(a.cfg.APIBaseURL, a.cfg.Timeout(), a.session, restOptions(a.cfg, a.logger)...)
	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()
	ws, err := chat.Dial(dialCtx, a.cfg.ChatWSURL, a.session.AccessToken(), a.logger.Named("chat"))
	if err != nil {
		a.logger.Warn("chat unavailable", zap.Error(err))
		store.Notify(uistate.LevelWarning, "Chat unavailable", err.Error())
		return svc, nil
	}
	return svc, ws
}
