package bot

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"deals-bot/command"
	"deals-bot/config"
	"deals-bot/database"
	"deals-bot/pipeline"
	"deals-bot/registry"
	"deals-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// Bot encapsulates the bot's state: the Discord session, the catalog
// database, the channel registry and the ingestion pipeline.
type Bot struct {
	Session  *discordgo.Session
	DB       *sql.DB
	Registry *registry.Registry
	Pipeline *pipeline.Pipeline
}

// NewBot creates and initializes a new Bot instance: config, logger,
// registry, database (with one products table per destination page) and
// the ingestion pipeline.
func NewBot() (*Bot, error) {
	config.LoadConfig()
	utils.InitLogger()

	token := viper.GetString("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	reg, err := registry.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading channel registry: %w", err)
	}

	dbPath := viper.GetString("catalog.db_path")
	if dbPath == "" {
		dbPath = "data/catalog.db"
	}
	db, err := database.InitDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	for _, page := range reg.Pages() {
		if err := database.EnsurePageTable(db, page); err != nil {
			db.Close()
			return nil, fmt.Errorf("error ensuring table for page %s: %w", page, err)
		}
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds

	return &Bot{
		Session:  dg,
		DB:       db,
		Registry: reg,
		Pipeline: pipeline.New(db, reg),
	}, nil
}

// Start opens the bot's session, registers slash commands and launches the
// pipeline workers and the expiry scheduler.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)
	b.Pipeline.Start()

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	utils.AttachDiscordHook(b.Session)

	// Register slash commands
	for _, def := range command.GetCommandDefinitions() {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", def); err != nil {
			utils.Log.WithError(err).Warnf("Cannot create '%v' command", def.Name)
		}
	}

	startScheduler(b)

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully shuts everything down: no new messages, drain the
// pipeline, then close the session and the database.
func (b *Bot) Stop() {
	stopScheduler()
	if b.Session != nil {
		b.Session.Close()
	}
	b.Pipeline.Stop()
	if b.DB != nil {
		b.DB.Close()
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot)) {
	bot, err := NewBot()
	if err != nil {
		utils.Log.Fatalf("Error initializing bot: %v", err)
	}

	if err := bot.Start(registerHandlers); err != nil {
		utils.Log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}
