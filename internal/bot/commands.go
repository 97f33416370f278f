package bot

import "github.com/bwmarrin/discordgo"

func commandDefs() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "safari", Description: "Lure a wild creature into this channel"},
		{Name: "catch", Description: "Throw at the creature currently here"},
		{Name: "current", Description: "Peek at the creature currently here"},
		{
			Name:        "collection",
			Description: "Show your latest catches",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "How many to list (default 10)",
					Required:    false,
				},
			},
		},
		{Name: "leaderboard", Description: "Top catchers in this channel"},
		{Name: "stats", Description: "Spawn statistics for this channel"},
		{Name: "unwatch", Description: "Stop automatic spawns in this channel"},
	}
}
