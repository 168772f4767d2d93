package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nasagram/pkg/config"
	"nasagram/pkg/instagram"
	"nasagram/pkg/logger"
	"nasagram/pkg/nasa"
	"nasagram/pkg/poster"
	"nasagram/pkg/ui"
)

var (
	postSession bool
	postEvery   string
)

// postCmd represents the post command
var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a random APOD image to Instagram",
	Long: `Pick a random Astronomy Picture of the Day image and post it to
Instagram with a generated caption.

By default the official Graph API is used, which requires a business
account (INSTAGRAM_ACCESS_TOKEN and INSTAGRAM_ACCOUNT_ID). With --session
a personal account is driven through the Instagram web flow instead
(INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD).

Failed attempts get a fresh random pick; when all attempts fail, today's
picture is posted as a last resort if it is an image.`,
	Example: `  # Post once via the Graph API
  nasagram post

  # Post via a personal account session
  nasagram post --session

  # Post every day at 09:00
  nasagram post --every "0 9 * * *"

  # Post every 12 hours
  nasagram post --every "@every 12h"`,
	Args: cobra.NoArgs,
	Run:  runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().BoolVar(&postSession, "session", false, "post through a web session instead of the Graph API")
	postCmd.Flags().StringVar(&postEvery, "every", "", "run on a cron schedule until interrupted")
}

func runPost(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	log := logger.GetLogger()

	apodClient := nasa.NewAPODClient(newNASAClient(cfg))

	var opts []poster.Option
	if postSession {
		if err := cfg.ValidateSession(); err != nil {
			fail("Missing session credentials", err)
		}
		session, err := openSession(cfg)
		if err != nil {
			fail("Instagram login failed", err)
		}
		opts = append(opts, poster.WithSessionPublisher(session))
	} else {
		if err := cfg.ValidateGraphAPI(); err != nil {
			fail("Missing Graph API credentials", err)
		}
		graph := instagram.NewGraphClient(
			cfg.Instagram.AccessToken,
			cfg.Instagram.AccountID,
			log,
			instagram.WithGraphVersion(cfg.Instagram.APIVersion),
		)
		opts = append(opts, poster.WithGraphPublisher(graph))
	}

	p := poster.New(apodClient, log, opts...)

	if postEvery != "" {
		runScheduled(p, postEvery)
		return
	}

	result, err := p.Post(context.Background())
	if err != nil {
		fail("Posting failed", err)
	}

	ui.PrintSuccess("Posted to Instagram")
	ui.PrintField("Post ID", result.PostID)
	ui.PrintField("APOD", result.APOD.Title+" ("+result.APOD.Date+")")
}

// runScheduled runs the posting flow on a cron schedule until SIGINT/SIGTERM
func runScheduled(p *poster.Poster, spec string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := poster.NewScheduler(p, logger.GetLogger())

	ui.PrintInfo("Schedule", spec)
	ui.PrintInfo("Stop with", "Ctrl-C")

	if err := scheduler.Run(ctx, spec); err != nil && err != context.Canceled {
		fail("Scheduler failed", err)
	}

	ui.PrintSuccess("Schedule stopped")
}

// openSession restores a saved web session or performs a fresh login
func openSession(cfg *config.Config) (*instagram.SessionClient, error) {
	log := logger.GetLogger()
	client := instagram.NewSessionClient(log, instagram.WithUserAgent(cfg.Instagram.UserAgent))

	if err := client.RestoreSession(cfg.Instagram.SessionFile); err == nil {
		log.Info("restored saved Instagram session")
		return client, nil
	}

	if err := client.Login(context.Background(), cfg.Instagram.Username, cfg.Instagram.Password); err != nil {
		return nil, err
	}
	if err := client.SaveSession(cfg.Instagram.SessionFile); err != nil {
		log.WithError(err).Warn("failed to save Instagram session")
	}

	return client, nil
}
