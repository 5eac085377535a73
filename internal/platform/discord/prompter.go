package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/civitasdev/civitas/internal/wizard"
)

const (
	customIDPrefix = "civitas"
	assignMenuID   = customIDPrefix + ":assign"

	maxButtonsPerRow = 5
	maxButtonRows    = 4
	maxMenuOptions   = 25
)

// Prompter renders wizard prompts as component messages in one channel and
// resolves the first matching component interaction from the session's
// user. One prompter serves one wizard session.
type Prompter struct {
	session   *discordgo.Session
	channelID string
	userID    string
}

var _ wizard.Prompter = (*Prompter)(nil)

// NewPrompter binds a prompter to the invoking user and their channel.
func NewPrompter(session *discordgo.Session, channelID, userID string) (*Prompter, error) {
	if session == nil {
		return nil, fmt.Errorf("discord: session is required")
	}
	if channelID == "" || userID == "" {
		return nil, fmt.Errorf("discord: channel and user ids are required")
	}
	return &Prompter{session: session, channelID: channelID, userID: userID}, nil
}

// Prompt posts the step as a component message and blocks until the user
// picks a component or the context expires. Context expiry maps to the
// wizard's timeout error so the controller ends the session cleanly.
func (p *Prompter) Prompt(ctx context.Context, prompt wizard.Prompt) (wizard.Action, error) {
	msg, err := p.session.ChannelMessageSendComplex(p.channelID, &discordgo.MessageSend{
		Content:    renderContent(prompt),
		Components: buildComponents(prompt.Choices),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return wizard.Action{}, fmt.Errorf("discord: send prompt: %w", err)
	}

	actions := make(chan wizard.Action, 1)
	remove := p.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionMessageComponent {
			return
		}
		if i.Message == nil || i.Message.ID != msg.ID || interactionUserID(i) != p.userID {
			return
		}
		act, ok := decodeInteraction(i.MessageComponentData())
		if !ok {
			return
		}
		// Acknowledge so Discord does not flag the interaction as failed.
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
		select {
		case actions <- act:
		default:
		}
	})
	defer remove()
	defer p.retireMessage(msg.ID)

	select {
	case act := <-actions:
		return act, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return wizard.Action{}, wizard.ErrPromptTimeout
		}
		return wizard.Action{}, ctx.Err()
	}
}

// retireMessage strips the components off an answered or expired prompt so
// stale buttons cannot be clicked later. Best effort.
func (p *Prompter) retireMessage(messageID string) {
	empty := []discordgo.MessageComponent{}
	_, _ = p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    p.channelID,
		Components: &empty,
	})
}

func renderContent(prompt wizard.Prompt) string {
	var b strings.Builder
	b.WriteString("**")
	b.WriteString(prompt.Title)
	b.WriteString("**")
	for _, line := range prompt.Lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// buildComponents lays choices out within Discord's component limits:
// assignment choices collapse into one select menu, everything else becomes
// button rows.
func buildComponents(choices []wizard.Choice) []discordgo.MessageComponent {
	var buttons []discordgo.MessageComponent
	var options []discordgo.SelectMenuOption
	for _, choice := range choices {
		if choice.ID == wizard.ActionAssign {
			if choice.Disabled || len(options) >= maxMenuOptions {
				continue
			}
			options = append(options, discordgo.SelectMenuOption{
				Label: choice.Label,
				Value: choice.Value,
			})
			continue
		}
		buttons = append(buttons, discordgo.Button{
			Label:    choice.Label,
			Style:    buttonStyle(choice.ID),
			CustomID: encodeCustomID(choice),
			Disabled: choice.Disabled,
		})
	}

	var rows []discordgo.MessageComponent
	for len(buttons) > 0 && len(rows) < maxButtonRows {
		n := len(buttons)
		if n > maxButtonsPerRow {
			n = maxButtonsPerRow
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons[:n]})
		buttons = buttons[n:]
	}
	if len(options) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    assignMenuID,
				Placeholder: "Link an existing one",
				Options:     options,
			},
		}})
	}
	return rows
}

func buttonStyle(actionID string) discordgo.ButtonStyle {
	switch actionID {
	case wizard.ActionConfirm:
		return discordgo.SuccessButton
	case wizard.ActionCancel:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}

func encodeCustomID(choice wizard.Choice) string {
	return customIDPrefix + ":" + choice.ID + ":" + choice.Value
}

func decodeInteraction(data discordgo.MessageComponentInteractionData) (wizard.Action, bool) {
	if data.CustomID == assignMenuID {
		if len(data.Values) == 0 {
			return wizard.Action{}, false
		}
		return wizard.Action{ID: wizard.ActionAssign, Value: data.Values[0]}, true
	}
	parts := strings.SplitN(data.CustomID, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix {
		return wizard.Action{}, false
	}
	return wizard.Action{ID: parts[1], Value: parts[2]}, true
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
