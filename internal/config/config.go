package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DiscordToken string

	GuildID            string
	ChannelID          string
	DashboardChannelID string
	CategoryID         string

	RSSURL        string
	CheckInterval time.Duration
	DeepEvent     int

	OKEmoji    string
	MaybeEmoji string
	NotEmoji   string

	DBPath   string
	Location *time.Location

	HTTPAddr     string
	ExportSecret string
}

func FromEnv() (Config, error) {
	var c Config
	c.DiscordToken = strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	c.GuildID = strings.TrimSpace(os.Getenv("SERVER_ID"))
	c.ChannelID = strings.TrimSpace(os.Getenv("CHANNEL_ID"))
	c.DashboardChannelID = strings.TrimSpace(os.Getenv("DASH_CHANNEL_ID"))
	c.CategoryID = strings.TrimSpace(os.Getenv("CATEGORY_ID"))

	c.RSSURL = strings.TrimSpace(os.Getenv("RSS_URL"))
	if c.RSSURL == "" {
		c.RSSURL = "https://ctftime.org/event/list/upcoming/rss/"
	}

	c.CheckInterval = time.Duration(envInt("CHECK_INTERVAL", 30)) * time.Second
	c.DeepEvent = envInt("DEEP_EVENT", 15)

	c.OKEmoji = strings.TrimSpace(os.Getenv("OK_EMOJI"))
	if c.OKEmoji == "" {
		c.OKEmoji = "✅"
	}
	c.MaybeEmoji = strings.TrimSpace(os.Getenv("MAYBE_EMOJI"))
	if c.MaybeEmoji == "" {
		c.MaybeEmoji = "❓"
	}
	c.NotEmoji = strings.TrimSpace(os.Getenv("NOT_EMOJI"))
	if c.NotEmoji == "" {
		c.NotEmoji = "❌"
	}

	c.DBPath = strings.TrimSpace(os.Getenv("DB_PATH"))
	if c.DBPath == "" {
		c.DBPath = "data/events.db"
	}

	tz := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if tz == "" {
		tz = "Europe/Paris"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return c, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	c.Location = loc

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.ExportSecret = strings.TrimSpace(os.Getenv("EXPORT_SECRET"))
	if c.ExportSecret == "" {
		c.ExportSecret = "change-me"
	}

	if c.DiscordToken == "" {
		return c, fmt.Errorf("DISCORD_TOKEN is empty")
	}
	if c.GuildID == "" {
		return c, fmt.Errorf("SERVER_ID is empty")
	}
	if c.ChannelID == "" {
		return c, fmt.Errorf("CHANNEL_ID is empty")
	}

	return c, nil
}

func envInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
