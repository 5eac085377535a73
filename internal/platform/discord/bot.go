package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/civitasdev/civitas/internal/commands"
)

const (
	commandConfig = "config"
	commandDelete = "delete"
)

// Bot owns the gateway session and routes slash commands into the command
// surface. Session lifecycle stays here; everything below the platform
// boundary is ignorant of it.
type Bot struct {
	session *discordgo.Session
	service *commands.Service
	log     zerolog.Logger

	registered []*discordgo.ApplicationCommand
}

// NewSession builds an unopened gateway session from a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return session, nil
}

// NewBot builds an unopened bot around an existing session.
func NewBot(session *discordgo.Session, service *commands.Service, log zerolog.Logger) (*Bot, error) {
	if session == nil {
		return nil, fmt.Errorf("discord: session is required")
	}
	if service == nil {
		return nil, fmt.Errorf("discord: command service is required")
	}
	return &Bot{session: session, service: service, log: log}, nil
}

// Start opens the gateway and registers the two application commands.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type == discordgo.InteractionApplicationCommand {
			b.dispatch(ctx, i)
		}
	})
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	for _, cmd := range []*discordgo.ApplicationCommand{
		{Name: commandConfig, Description: "Configure this community's governance"},
		{Name: commandDelete, Description: "Remove this community's governance configuration"},
	} {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("discord: register /%s: %w", cmd.Name, err)
		}
		b.registered = append(b.registered, created)
	}
	b.log.Info().Str("user", b.session.State.User.Username).Msg("gateway connected")
	return nil
}

// Close deregisters the commands and closes the gateway.
func (b *Bot) Close() error {
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID); err != nil {
			b.log.Warn().Err(err).Str("command", cmd.Name).Msg("command deregistration failed")
		}
	}
	return b.session.Close()
}

func (b *Bot) dispatch(ctx context.Context, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	userID := interactionUserID(i)
	if i.GuildID == "" || userID == "" {
		return
	}
	// Ack immediately; both commands run long past the interaction window.
	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		b.log.Error().Err(err).Str("command", name).Msg("interaction ack failed")
		return
	}
	notify := b.notifier(i)
	prompter, err := NewPrompter(b.session, i.ChannelID, userID)
	if err != nil {
		b.log.Error().Err(err).Msg("prompter setup failed")
		return
	}

	go func() {
		var err error
		switch name {
		case commandConfig:
			err = b.service.Configure(ctx, i.GuildID, prompter, notify)
		case commandDelete:
			err = b.service.Delete(ctx, i.GuildID, userID, prompter, notify)
		default:
			return
		}
		if err != nil {
			b.log.Error().Err(err).Str("command", name).Str("guild", i.GuildID).Msg("command failed")
		}
	}()
}

// notifier resolves the deferred interaction response with one ephemeral
// message.
func (b *Bot) notifier(i *discordgo.InteractionCreate) commands.Notify {
	return func(ctx context.Context, message string) error {
		_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("discord: followup message: %w", err)
		}
		return nil
	}
}
