package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oskarv/chat-safari/internal/bot"
	"github.com/oskarv/chat-safari/internal/creature"
	"github.com/oskarv/chat-safari/internal/ratelimit"
	"github.com/oskarv/chat-safari/internal/sched"
	"github.com/oskarv/chat-safari/internal/spawn"
	"github.com/oskarv/chat-safari/internal/store"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	reg, err := creature.LoadRegistryFromJSON(config.SpeciesJson)
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.OpenSQLite(config.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	picker := creature.NewPicker(reg, nil)
	eng := spawn.NewEngine(st, picker, spawn.Config{
		Window:    time.Duration(config.SpawnWindowSec) * time.Second,
		CatchRate: float64(config.CatchRatePercent) / 100.0,
		ShinyRate: 1.0 / float64(config.ShinyOneIn),
		LevelMin:  config.LevelMin,
		LevelMax:  config.LevelMax,
	}, nil, nil)

	scheduler := sched.New(eng, sched.Options{
		MinInterval: time.Duration(config.SpawnIntervalMin) * time.Second,
		MaxInterval: time.Duration(config.SpawnIntervalMax) * time.Second,
	})

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		log.Fatal("failed to start session:", err)
	}

	session.ShardCount = config.ShardCount
	session.ShardID = config.ShardId

	if err := session.Open(); err != nil {
		log.Fatal("failed to open session connection:", err)
	}
	defer session.Close()

	appId := session.State.User.ID

	lim := ratelimit.NewLimiter(nil)
	teardown, err := bot.Setup(
		session, appId, config.DevGuild,
		eng, scheduler, st, reg, lim,
		time.Duration(config.ManualCooldownSec)*time.Second,
	)
	if err != nil {
		log.Fatal("failed to setup bot:", err)
	}
	defer teardown()

	scheduler.Start()
	defer scheduler.Stop()

	// Expired-row purge is housekeeping; the expiry predicate on every
	// conditional write is what keeps dead spawns uncatchable.
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go func() {
		ticker := time.NewTicker(time.Duration(config.PurgeIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if _, err := eng.PurgeExpired(purgeCtx); err != nil {
					log.Printf("purge failed: %v", err)
				}
			}
		}
	}()

	log.Println("Bot is running")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
