// Command civitas runs the governance bot: a gateway-connected daemon, a
// terminal preview of the configuration wizard, and a teardown utility.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/civitasdev/civitas/internal/commands"
	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/events"
	"github.com/civitasdev/civitas/internal/logging"
	"github.com/civitasdev/civitas/internal/platform"
	"github.com/civitasdev/civitas/internal/platform/discord"
	"github.com/civitasdev/civitas/internal/provision"
	"github.com/civitasdev/civitas/internal/store"
	"github.com/civitasdev/civitas/internal/tui"
	"github.com/civitasdev/civitas/internal/wizard"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "civitas",
		Short:         "Self-governance for chat communities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "civitas.yaml", "runtime configuration file")
	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newPreviewCmd(&configPath))
	root.AddCommand(newTeardownCmd(&configPath))
	return root
}

// newRunCmd connects to the gateway and serves the slash commands plus the
// election poller until interrupted.
func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve governance commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := config.LoadRuntime(*configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(rt.StateDir, rt.Debug)
			if err != nil {
				return err
			}
			defer log.Close()
			templates, err := config.LoadTemplates()
			if err != nil {
				return err
			}

			session, err := discord.NewSession(rt.Token)
			if err != nil {
				return err
			}
			client, err := discord.NewClient(session)
			if err != nil {
				return err
			}
			st := store.NewFile(rt.StateDir)
			orch, err := provision.New(st, client, templates, provision.WithLogger(log.Logger))
			if err != nil {
				return err
			}
			service := commands.NewService(rt, templates, client, orch, wizard.DefaultRegistry(), log.Logger)
			bot, err := discord.NewBot(session, service, log.Logger)
			if err != nil {
				return err
			}
			poller, err := events.NewPoller(st, st, client, rt.PollInterval,
				events.WithPollerLogger(log.Logger))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := bot.Start(ctx); err != nil {
				return err
			}
			defer bot.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return poller.Run(gctx) })
			if err := g.Wait(); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

// newPreviewCmd runs the full wizard flow against an in-memory store and a
// fake platform, rendered in the terminal.
func newPreviewCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Walk the configuration wizard in the terminal, no gateway needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := config.LoadRuntime(*configPath)
			if err != nil {
				return err
			}
			templates, err := config.LoadTemplates()
			if err != nil {
				return err
			}
			fake := platform.NewFake(platform.CommunityInfo{
				ID:             "preview",
				Name:           "Preview Community",
				OwnerID:        "previewer",
				MemberCount:    42,
				EveryoneRoleID: "everyone",
			})
			st := store.NewMemory()
			orch, err := provision.New(st, fake, templates, provision.WithLogger(logging.Discard().Logger))
			if err != nil {
				return err
			}
			service := commands.NewService(rt, templates, fake, orch, wizard.DefaultRegistry(), logging.Discard().Logger)

			preview := tui.NewPreview()
			result := make(chan string, 1)
			go func() {
				defer preview.Quit()
				notify := func(ctx context.Context, message string) error {
					result <- message
					return nil
				}
				if err := service.Configure(cmd.Context(), "preview", preview, notify); err != nil {
					result <- err.Error()
				}
			}()
			if err := preview.Run(); err != nil {
				return err
			}
			select {
			case msg := <-result:
				fmt.Println(msg)
			default:
			}
			fmt.Printf("documents created: %d\n", st.CountAll())
			return nil
		},
	}
}

// newTeardownCmd removes a community's configuration from the command line,
// for operators cleaning up after a bot that can no longer reach the guild.
func newTeardownCmd(configPath *string) *cobra.Command {
	var deleteExternal bool
	cmd := &cobra.Command{
		Use:   "teardown <community-id>",
		Short: "Remove a community's governance configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := config.LoadRuntime(*configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(rt.StateDir, rt.Debug)
			if err != nil {
				return err
			}
			defer log.Close()
			templates, err := config.LoadTemplates()
			if err != nil {
				return err
			}
			session, err := discord.NewSession(rt.Token)
			if err != nil {
				return err
			}
			client, err := discord.NewClient(session)
			if err != nil {
				return err
			}
			st := store.NewFile(rt.StateDir)
			orch, err := provision.New(st, client, templates, provision.WithLogger(log.Logger))
			if err != nil {
				return err
			}
			existed, err := orch.Teardown(cmd.Context(), args[0], deleteExternal)
			if err != nil {
				return err
			}
			if !existed {
				fmt.Println("no configuration found for", args[0])
				return nil
			}
			fmt.Println("configuration removed for", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteExternal, "external", false, "also delete the Discord roles and channels")
	return cmd
}
