// Package discordgo provides Discord API adapters using package github.com/bwmarrin/discordgo
package discordgo

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/pomod"
)

// Embed colors per ended session.
const (
	focusColor = 0xD9534F
	breakColor = 0x5CB85C
)

type webhookAdapter struct {
	cl        *discordgo.Session
	webhookID string
	token     string
	l         log.Logger
}

func NewWebhookAdapter(cl *discordgo.Session, webhookID, token string, logger log.Logger) *webhookAdapter {
	return &webhookAdapter{
		cl:        cl,
		webhookID: webhookID,
		token:     token,
		l:         logger,
	}
}

// Notify posts n to the channel webhook as a single embed.
func (w *webhookAdapter) Notify(ctx context.Context, n pomod.Notification) error {
	color := breakColor
	if n.Ended == pomod.FocusSession {
		color = focusColor
	}
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       n.Title,
			Description: n.Body,
			Color:       color,
		}},
	}

	w.l.Debug("executing webhook", "webhookID", w.webhookID, "title", n.Title)
	if _, err := w.cl.WebhookExecute(w.webhookID, w.token, false, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("execute discord webhook: %w", err)
	}
	return nil
}
