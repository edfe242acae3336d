package bot

import (
	"deals-bot/database"
	"deals-bot/utils"

	"github.com/robfig/cron/v3"
)

var c *cron.Cron

// startScheduler starts the cron jobs.
func startScheduler(b *Bot) {
	utils.Log.Info("Initializing scheduler...")
	c = cron.New()
	_, err := c.AddFunc("@hourly", func() {
		if _, err := database.SweepExpired(b.DB, b.Registry.Pages()); err != nil {
			utils.Log.WithError(err).Error("Hourly expiry sweep failed")
		}
	})
	if err != nil {
		utils.Log.Fatalf("Could not set up cron job: %v", err)
	}
	c.Start()
	utils.Log.Info("Expiry sweep scheduled to run hourly.")

	// Sweep once at startup so records that expired while the bot was down
	// don't linger as active.
	go func() {
		if _, err := database.SweepExpired(b.DB, b.Registry.Pages()); err != nil {
			utils.Log.WithError(err).Error("Startup expiry sweep failed")
		}
	}()
}

// stopScheduler stops the cron jobs.
func stopScheduler() {
	if c != nil {
		c.Stop()
		utils.Log.Info("Scheduler stopped.")
	}
}
