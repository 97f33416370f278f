package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oskarv/chat-safari/internal/creature"
	"github.com/oskarv/chat-safari/internal/ratelimit"
	"github.com/oskarv/chat-safari/internal/sched"
	"github.com/oskarv/chat-safari/internal/spawn"
	"github.com/oskarv/chat-safari/internal/store"
)

type module struct {
	s        *discordgo.Session
	eng      *spawn.Engine
	sched    *sched.Scheduler
	st       *store.SQLiteStore
	reg      *creature.Registry
	lim      *ratelimit.Limiter
	cooldown time.Duration
}

func Setup(
	session *discordgo.Session,
	appId, scopeGuild string,
	eng *spawn.Engine,
	scheduler *sched.Scheduler,
	st *store.SQLiteStore,
	reg *creature.Registry,
	lim *ratelimit.Limiter,
	cooldown time.Duration,
) (func(), error) {

	m := &module{
		s:        session,
		eng:      eng,
		sched:    scheduler,
		st:       st,
		reg:      reg,
		lim:      lim,
		cooldown: cooldown,
	}

	cmds := commandDefs()

	created, err := session.ApplicationCommandBulkOverwrite(appId, scopeGuild, cmds)
	if err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	for _, c := range created {
		fmt.Printf("command active: %s (%s)\n", c.Name, c.Description)
	}

	session.AddHandler(m.onInteraction)

	return func() {}, nil
}

func (m *module) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "safari":
		m.handleSafari(s, i)
	case "catch":
		m.handleCatch(s, i)
	case "current":
		m.handleCurrent(s, i)
	case "collection":
		m.handleCollection(s, i)
	case "leaderboard":
		m.handleLeaderboard(s, i)
	case "stats":
		m.handleStats(s, i)
	case "unwatch":
		m.handleUnwatch(s, i)
	}
}

func (m *module) handleSafari(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Validate execution context (/safari must be run in a server)
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	userIdStr := interactionUserId(i)

	// Manual spawns are cooldown-gated per user, independent of whether
	// the channel already has a spawn out.
	if ok, rem := m.lim.TryUser(i.ChannelID, userIdStr, m.cooldown); !ok {
		respondEphemeral(s, i, fmt.Sprintf("⏳ The grass is settling… try again in %s.", pretty(rem)))
		return
	}

	// Send a deferred ack so we don't hit a timeout while processing
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	channelId := toInt64(i.ChannelID)

	// Any safari activity makes the channel eligible for auto-spawns.
	m.sched.RegisterChannel(channelId)

	created, sp, err := m.eng.CreateSpawn(context.TODO(), channelId)
	if err != nil {
		logREST("create spawn failed", err)
		editResponseText(s, i, "The tall grass rustled and went still. Try again in a moment.")
		return
	}

	if !created {
		cur, err := m.eng.GetActiveSpawn(context.TODO(), channelId)
		if err == nil && cur != nil {
			editResponseText(s, i, fmt.Sprintf("A wild **%s** is already out there — `/catch` it first!", displayName(cur)))
		} else {
			editResponseText(s, i, "Something is already out there — `/catch` it first!")
		}
		return
	}

	m.editEmbed(s, i, m.spawnEmbed(sp, "A wild creature appeared!"))
}

func (m *module) handleCatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	userIdStr := interactionUserId(i)

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	channelId := toInt64(i.ChannelID)
	m.sched.RegisterChannel(channelId)

	cur, err := m.eng.GetActiveSpawn(context.TODO(), channelId)
	if err != nil {
		logREST("read active spawn failed", err)
		editResponseText(s, i, "Couldn't see through the grass. Try again in a moment.")
		return
	}
	if cur == nil {
		editResponseText(s, i, "There's nothing here right now. `/safari` to lure something out!")
		return
	}

	res, err := m.eng.ResolveCapture(context.TODO(), cur.Id, toInt64(userIdStr))
	if err != nil {
		logREST("resolve capture failed", err)
		editResponseText(s, i, "The throw went wide. Try again in a moment.")
		return
	}

	username := interactionUsername(i)

	switch res.Outcome {
	case spawn.OutcomeCaught:
		embed := m.spawnEmbed(res.Spawn, fmt.Sprintf("%s caught %s!", username, displayName(res.Spawn)))
		embed.Description += fmt.Sprintf("\n+**%d** EXP  ·  +**%d** coins", res.Exp, res.Coins)
		m.editEmbed(s, i, embed)
	case spawn.OutcomeEscaped:
		editResponseText(s, i, fmt.Sprintf("💨 **%s** broke free and fled! It won't be back.", displayName(res.Spawn)))
	case spawn.OutcomeAlreadyCaught:
		editResponseText(s, i, "Too slow — someone else caught it first!")
	case spawn.OutcomeExpired:
		editResponseText(s, i, "It fled before your throw landed.")
	default:
		editResponseText(s, i, "It's already gone.")
	}
}

func (m *module) handleCurrent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	cur, err := m.eng.GetActiveSpawn(context.TODO(), toInt64(i.ChannelID))
	if err != nil {
		logREST("read active spawn failed", err)
		editResponseText(s, i, "Couldn't see through the grass. Try again in a moment.")
		return
	}
	if cur == nil {
		editResponseText(s, i, "There's nothing here right now. `/safari` to lure something out!")
		return
	}

	embed := m.spawnEmbed(cur, fmt.Sprintf("A wild %s is here!", displayName(cur)))
	embed.Description += fmt.Sprintf("\nFlees in **%s**", pretty(time.Until(cur.ExpiresAt)))
	m.editEmbed(s, i, embed)
}

func (m *module) handleCollection(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	limit := 10
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "limit" {
			limit = int(opt.IntValue())
		}
	}

	userIdStr := interactionUserId(i)
	rows, err := m.st.ListCreatures(context.TODO(), toInt64(userIdStr), limit)
	if err != nil {
		logREST("list creatures failed", err)
		editResponseText(s, i, "Error loading your collection.")
		return
	}

	if len(rows) == 0 {
		editResponseText(s, i, "No catches yet - type `/catch` when something appears!")
		return
	}

	desc := strings.Builder{}
	for _, c := range rows {
		name := c.Species
		if c.Shiny {
			name = "✨ " + name
		}
		desc.WriteString(fmt.Sprintf("**%s** — Lv.%d · %s · %d HP\n", name, c.Level, c.Tier, c.Stats.HP))
	}

	m.editEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s's collection", interactionUsername(i)),
		Description: desc.String(),
		Color:       0x2ECC71,
	})
}

func (m *module) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	rows, err := m.st.TopCatchers(context.TODO(), toInt64(i.ChannelID), 10)
	if err != nil {
		logREST("leaderboard failed", err)
		editResponseText(s, i, "Error loading leaderboard.")
		return
	}

	if len(rows) == 0 {
		editResponseText(s, i, "Nobody has caught anything here yet!")
		return
	}

	desc := strings.Builder{}
	for idx, c := range rows {
		// mention format: <@USERID>
		desc.WriteString(fmt.Sprintf("**#%d** <@%d> — **%d** caught\n", idx+1, c.UserId, c.Caught))
	}

	m.editEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🏆 Leaderboard - Top Catchers",
		Description: desc.String(),
		Color:       0xF1C40F,
	})
}

func (m *module) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	st, err := m.eng.Stats(context.TODO(), toInt64(i.ChannelID))
	if err != nil {
		logREST("spawn stats failed", err)
		editResponseText(s, i, "Error loading stats.")
		return
	}

	m.editEmbed(s, i, &discordgo.MessageEmbed{
		Title: "📊 Spawn stats",
		Description: fmt.Sprintf(
			"Spawns here: **%d**\nCaught: **%d**\nShinies: **%d**\nAverage level: **%.1f**\nWatched channels: **%d**",
			st.Total, st.Caught, st.Shiny, st.AvgLevel, len(m.sched.Channels())),
		Color: 0x3498DB,
	})
}

func (m *module) handleUnwatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	m.sched.UnregisterChannel(toInt64(i.ChannelID))
	respondEphemeral(s, i, "Automatic spawns are off for this channel. Any `/safari` or `/catch` turns them back on.")
}

func (m *module) spawnEmbed(sp *spawn.Spawn, title string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: title,
		Description: fmt.Sprintf("**%s**  ·  Lv.%d\nRarity: **%s**",
			displayName(sp), sp.Level, sp.Tier),
		Color: creature.ColorForTier(sp.Tier),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Tip: /catch before it flees!",
		},
	}
	if species, ok := m.reg.GetById(sp.SpeciesId); ok && species.Image != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: species.Image}
	}
	return embed
}

func (m *module) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	}); err != nil {
		logREST("edit failed", err)
	}
}

func displayName(sp *spawn.Spawn) string {
	if sp.Shiny {
		return "✨ " + sp.Species
	}
	return sp.Species
}

func interactionUserId(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func interactionUsername(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return "Someone"
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func editResponseText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
}

func pretty(d time.Duration) string {
	// mm:ss
	if d < 0 {
		d = 0
	}
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}

func logREST(msg string, err error) {
	if rerr, ok := err.(*discordgo.RESTError); ok && rerr.Message != nil {
		log.Printf("%s: code=%d msg=%s", msg, rerr.Message.Code, rerr.Message.Message)
	} else {
		log.Printf("%s: %v", msg, err)
	}
}

// Convert snowflake string to int64 for storage keys.
func toInt64(snowflake string) int64 {
	n, _ := strconv.ParseInt(snowflake, 10, 64)
	return n
}
