package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nasagram/pkg/nasa"
	"nasagram/pkg/ui"
)

var (
	marsSol       int
	marsEarthDate string
	marsCamera    string
	marsPage      int
)

// marsCmd represents the mars command
var marsCmd = &cobra.Command{
	Use:   "mars",
	Short: "Browse Mars Rover Photos",
	Long: `Browse photos taken by NASA's Mars rovers.

Supported rovers: curiosity, opportunity, spirit, perseverance. Each rover
carries its own camera set; use 'nasagram mars rovers' to list them.`,
}

// marsRoversCmd represents the mars rovers command
var marsRoversCmd = &cobra.Command{
	Use:   "rovers",
	Short: "List rovers and their cameras",
	Args:  cobra.NoArgs,
	Run:   runMarsRovers,
}

// marsManifestCmd represents the mars manifest command
var marsManifestCmd = &cobra.Command{
	Use:   "manifest <rover>",
	Short: "Show a rover's mission manifest",
	Example: `  nasagram mars manifest curiosity`,
	Args:    cobra.ExactArgs(1),
	Run:     runMarsManifest,
}

// marsPhotosCmd represents the mars photos command
var marsPhotosCmd = &cobra.Command{
	Use:   "photos <rover>",
	Short: "Fetch photos by sol or earth date",
	Long: `Fetch rover photos for a Martian sol or an earth date. Exactly one
of --sol and --earth-date must be given.`,
	Example: `  # Curiosity photos from sol 1000
  nasagram mars photos curiosity --sol 1000

  # Perseverance navigation camera photos for a date
  nasagram mars photos perseverance --earth-date 2024-01-15 --camera NAVCAM_LEFT`,
	Args: cobra.ExactArgs(1),
	Run:  runMarsPhotos,
}

// marsLatestCmd represents the mars latest command
var marsLatestCmd = &cobra.Command{
	Use:   "latest <rover>",
	Short: "Fetch a rover's most recent photos",
	Example: `  nasagram mars latest perseverance`,
	Args:    cobra.ExactArgs(1),
	Run:     runMarsLatest,
}

func init() {
	rootCmd.AddCommand(marsCmd)
	marsCmd.AddCommand(marsRoversCmd)
	marsCmd.AddCommand(marsManifestCmd)
	marsCmd.AddCommand(marsPhotosCmd)
	marsCmd.AddCommand(marsLatestCmd)

	marsPhotosCmd.Flags().IntVar(&marsSol, "sol", -1, "Martian sol to fetch")
	marsPhotosCmd.Flags().StringVar(&marsEarthDate, "earth-date", "", "earth date to fetch (YYYY-MM-DD)")
	marsPhotosCmd.Flags().StringVar(&marsCamera, "camera", "", "filter by camera name")
	marsPhotosCmd.Flags().IntVar(&marsPage, "page", 0, "result page (25 photos per page)")
}

func runMarsRovers(cmd *cobra.Command, args []string) {
	for _, rover := range nasa.AvailableRovers() {
		cameras, _ := nasa.RoverCameras(rover)
		ui.PrintField(rover, strings.Join(cameras, ", "))
	}
}

func runMarsManifest(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := nasa.NewMarsClient(newNASAClient(cfg))

	manifest, err := client.GetManifest(context.Background(), args[0])
	if err != nil {
		fail("Failed to fetch mission manifest", err)
	}

	ui.PrintHighlight(manifest.Name)
	ui.PrintField("Status", manifest.Status)
	ui.PrintField("Launch", manifest.LaunchDate)
	ui.PrintField("Landing", manifest.LandingDate)
	ui.PrintField("Max sol", strconv.Itoa(manifest.MaxSol))
	ui.PrintField("Max date", manifest.MaxDate)
	ui.PrintField("Total photos", strconv.Itoa(manifest.TotalPhotos))
}

func runMarsPhotos(cmd *cobra.Command, args []string) {
	if (marsSol < 0) == (marsEarthDate == "") {
		fail("Invalid arguments", fmt.Errorf("exactly one of --sol and --earth-date is required"))
	}

	cfg := loadConfig(nil)
	client := nasa.NewMarsClient(newNASAClient(cfg))

	var photos []nasa.MarsPhoto
	var err error
	if marsSol >= 0 {
		photos, err = client.GetPhotosBySol(context.Background(), args[0], marsSol, marsCamera, marsPage)
	} else {
		photos, err = client.GetPhotosByEarthDate(context.Background(), args[0], marsEarthDate, marsCamera, marsPage)
	}
	if err != nil {
		fail("Failed to fetch rover photos", err)
	}

	printMarsPhotos(photos)
}

func runMarsLatest(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := nasa.NewMarsClient(newNASAClient(cfg))

	photos, err := client.GetLatestPhotos(context.Background(), args[0])
	if err != nil {
		fail("Failed to fetch latest photos", err)
	}

	printMarsPhotos(photos)
}

func printMarsPhotos(photos []nasa.MarsPhoto) {
	if len(photos) == 0 {
		ui.PrintInfo("No photos found", "try another sol, date or camera")
		return
	}

	ui.PrintInfo("Photos", strconv.Itoa(len(photos)))
	for _, photo := range photos {
		fmt.Printf("  %d  sol %-5d  %s  %-20s  %s\n",
			photo.ID, photo.Sol, photo.EarthDate, photo.Camera.Name, photo.ImgSrc)
	}
}
