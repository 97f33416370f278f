package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	SpeciesJson       string
	DiscordToken      string
	DevGuild          string
	DBPath            string
	ShardCount        int
	ShardId           int
	SpawnWindowSec    int
	SpawnIntervalMin  int
	SpawnIntervalMax  int
	ManualCooldownSec int
	PurgeIntervalSec  int
	CatchRatePercent  int
	ShinyOneIn        int
	LevelMin          int
	LevelMax          int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	speciesJson := os.Getenv("SPECIES_JSON")
	if speciesJson == "" {
		return nil, fmt.Errorf("No SPECIES_JSON in environment")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("No DISCORD_TOKEN in environment")
	}

	devGuild := os.Getenv("DEV_GUILD_ID")
	if devGuild == "" {
		return nil, fmt.Errorf("No DEV_GUILD_ID in environment")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("No DB_PATH in environment")
	}

	shardCount, err := loadInt("SHARD_COUNT", 1)
	if err != nil {
		return nil, err
	}
	shardId, err := loadInt("SHARD_ID", 0)
	if err != nil {
		return nil, err
	}
	spawnWindow, err := loadInt("SPAWN_WINDOW_SEC", 600)
	if err != nil {
		return nil, err
	}
	intervalMin, err := loadInt("SPAWN_INTERVAL_MIN", 30)
	if err != nil {
		return nil, err
	}
	intervalMax, err := loadInt("SPAWN_INTERVAL_MAX", 60)
	if err != nil {
		return nil, err
	}
	manualCooldown, err := loadInt("MANUAL_SPAWN_COOLDOWN", 30)
	if err != nil {
		return nil, err
	}
	purgeInterval, err := loadInt("PURGE_INTERVAL_SEC", 300)
	if err != nil {
		return nil, err
	}
	catchRate, err := loadInt("CATCH_RATE_PERCENT", 98)
	if err != nil {
		return nil, err
	}
	shinyOneIn, err := loadInt("SHINY_ONE_IN", 500)
	if err != nil {
		return nil, err
	}
	levelMin, err := loadInt("LEVEL_MIN", 1)
	if err != nil {
		return nil, err
	}
	levelMax, err := loadInt("LEVEL_MAX", 50)
	if err != nil {
		return nil, err
	}

	return &Config{
		SpeciesJson:       speciesJson,
		DiscordToken:      token,
		DevGuild:          devGuild,
		DBPath:            dbPath,
		ShardCount:        shardCount,
		ShardId:           shardId,
		SpawnWindowSec:    spawnWindow,
		SpawnIntervalMin:  intervalMin,
		SpawnIntervalMax:  intervalMax,
		ManualCooldownSec: manualCooldown,
		PurgeIntervalSec:  purgeInterval,
		CatchRatePercent:  catchRate,
		ShinyOneIn:        shinyOneIn,
		LevelMin:          levelMin,
		LevelMax:          levelMax,
	}, nil
}

func loadInt(key string, defValue int) (int, error) {
	value := os.Getenv(key)
	if value != "" {
		return strconv.Atoi(value)
	}

	return defValue, nil
}
