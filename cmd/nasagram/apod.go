package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nasagram/pkg/nasa"
	"nasagram/pkg/ui"
)

var (
	apodHD          bool
	apodThumbs      bool
	apodRandomCount int
)

// apodCmd represents the apod command
var apodCmd = &cobra.Command{
	Use:   "apod [date]",
	Short: "Fetch the Astronomy Picture of the Day",
	Long: `Fetch NASA's Astronomy Picture of the Day.

Without arguments, today's picture is shown. A date in YYYY-MM-DD form
fetches that day's picture; the archive starts at 1995-06-16.`,
	Example: `  # Today's picture
  nasagram apod

  # A specific date
  nasagram apod 2024-01-15

  # Include a video thumbnail URL for video entries
  nasagram apod 2024-01-15 --thumbs`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAPOD,
}

// apodRandomCmd represents the apod random command
var apodRandomCmd = &cobra.Command{
	Use:   "random",
	Short: "Fetch random pictures from the APOD archive",
	Example: `  # One random picture
  nasagram apod random

  # Five random pictures
  nasagram apod random --count 5`,
	Args: cobra.NoArgs,
	Run:  runAPODRandom,
}

// apodRangeCmd represents the apod range command
var apodRangeCmd = &cobra.Command{
	Use:   "range <start> <end>",
	Short: "Fetch all pictures in a date range",
	Example: `  nasagram apod range 2024-01-01 2024-01-07`,
	Args:    cobra.ExactArgs(2),
	Run:     runAPODRange,
}

// apodRecentCmd represents the apod recent command
var apodRecentCmd = &cobra.Command{
	Use:   "recent <days>",
	Short: "Fetch the most recent pictures",
	Example: `  # The last week of pictures
  nasagram apod recent 7`,
	Args: cobra.ExactArgs(1),
	Run:  runAPODRecent,
}

func init() {
	rootCmd.AddCommand(apodCmd)
	apodCmd.AddCommand(apodRandomCmd)
	apodCmd.AddCommand(apodRangeCmd)
	apodCmd.AddCommand(apodRecentCmd)

	apodCmd.Flags().BoolVar(&apodHD, "hd", false, "request the high-definition image URL")
	apodCmd.Flags().BoolVar(&apodThumbs, "thumbs", false, "include video thumbnail URLs")
	apodRandomCmd.Flags().IntVar(&apodRandomCount, "count", 1, "number of random pictures (1-100)")
}

func runAPOD(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := nasa.NewAPODClient(newNASAClient(cfg))

	opts := nasa.APODOptions{HD: apodHD, Thumbs: apodThumbs}
	if len(args) > 0 {
		opts.Date = args[0]
	}

	apod, err := client.Get(context.Background(), opts)
	if err != nil {
		fail("Failed to fetch APOD", err)
	}

	printAPOD(apod)
}

func runAPODRandom(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := nasa.NewAPODClient(newNASAClient(cfg))

	apods, err := client.GetRandom(context.Background(), apodRandomCount)
	if err != nil {
		fail("Failed to fetch random APODs", err)
	}

	for i := range apods {
		printAPOD(&apods[i])
		if i < len(apods)-1 {
			fmt.Println()
		}
	}
}

func runAPODRange(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := nasa.NewAPODClient(newNASAClient(cfg))

	apods, err := client.GetRange(context.Background(), args[0], args[1])
	if err != nil {
		fail("Failed to fetch APOD range", err)
	}

	ui.PrintInfo("Entries", strconv.Itoa(len(apods)))
	for i := range apods {
		printAPOD(&apods[i])
		if i < len(apods)-1 {
			fmt.Println()
		}
	}
}

func runAPODRecent(cmd *cobra.Command, args []string) {
	days, err := strconv.Atoi(args[0])
	if err != nil {
		fail("Invalid number of days", err)
	}

	cfg := loadConfig(nil)
	client := nasa.NewAPODClient(newNASAClient(cfg))

	apods, err := client.GetRecent(context.Background(), days)
	if err != nil {
		fail("Failed to fetch recent APODs", err)
	}

	for i := range apods {
		printAPOD(&apods[i])
		if i < len(apods)-1 {
			fmt.Println()
		}
	}
}

// printAPOD renders one APOD record to the terminal
func printAPOD(apod *nasa.APOD) {
	ui.PrintHighlight(apod.Title)
	ui.PrintField("Date", apod.Date)
	ui.PrintField("Media", apod.MediaType)
	if apod.Copyright != "" {
		ui.PrintField("Copyright", apod.Copyright)
	}
	ui.PrintField("URL", apod.URL)
	if apod.HDURL != "" {
		ui.PrintField("HD URL", apod.HDURL)
	}
	if apod.ThumbnailURL != "" {
		ui.PrintField("Thumbnail", apod.ThumbnailURL)
	}
	fmt.Println()
	fmt.Println(apod.Explanation)
}
