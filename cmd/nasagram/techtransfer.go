package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nasagram/pkg/nasa"
	"nasagram/pkg/ui"
)

var (
	techCategory string
	techLimit    int
)

// techTransferCmd represents the techtransfer command
var techTransferCmd = &cobra.Command{
	Use:   "techtransfer <query>",
	Short: "Search NASA's TechTransfer catalog",
	Long: `Search NASA's TechTransfer catalog of patents, software and spinoff
technologies.

By default all three categories are searched; a failed category is reported
without failing the others.`,
	Example: `  # Search everything for propulsion technology
  nasagram techtransfer propulsion

  # Only patents, more results
  nasagram techtransfer "solar panel" --category patent --limit 20`,
	Args: cobra.ExactArgs(1),
	Run:  runTechTransfer,
}

func init() {
	rootCmd.AddCommand(techTransferCmd)

	techTransferCmd.Flags().StringVar(&techCategory, "category", "all",
		"category to search (patent, software, spinoff, all)")
	techTransferCmd.Flags().IntVar(&techLimit, "limit", nasa.DefaultSearchLimit,
		"maximum results per category")
}

func runTechTransfer(cmd *cobra.Command, args []string) {
	query := strings.TrimSpace(args[0])

	cfg := loadConfig(nil)
	client := nasa.NewTechTransferClient(newNASAClient(cfg))
	ctx := context.Background()

	switch techCategory {
	case nasa.CategoryPatent:
		patents, err := client.SearchPatents(ctx, query, techLimit)
		if err != nil {
			fail("Patent search failed", err)
		}
		printPatents(patents)
	case nasa.CategorySoftware:
		software, err := client.SearchSoftware(ctx, query, techLimit)
		if err != nil {
			fail("Software search failed", err)
		}
		printSoftware(software)
	case nasa.CategorySpinoff:
		spinoffs, err := client.SearchSpinoffs(ctx, query, techLimit)
		if err != nil {
			fail("Spinoff search failed", err)
		}
		printSpinoffs(spinoffs)
	case "all":
		results := client.SearchAll(ctx, query, techLimit)
		for _, category := range nasa.Categories() {
			result := results[category]
			ui.PrintHighlight(strings.ToUpper(category))
			if result.Err != nil {
				ui.PrintWarning("search failed: %s", result.Err.Error())
				continue
			}
			switch category {
			case nasa.CategoryPatent:
				printPatents(result.Patents)
			case nasa.CategorySoftware:
				printSoftware(result.Software)
			case nasa.CategorySpinoff:
				printSpinoffs(result.Spinoffs)
			}
			fmt.Println()
		}
	default:
		fail("Invalid category", fmt.Errorf("%q is not one of %s, all",
			techCategory, strings.Join(nasa.Categories(), ", ")))
	}
}

func printPatents(patents []nasa.Patent) {
	if len(patents) == 0 {
		ui.PrintInfo("No patents found", "")
		return
	}
	for _, p := range patents {
		ui.PrintField(p.CaseNumber, p.Title)
		if p.Center != "" {
			fmt.Printf("      center: %s  patent: %s\n", p.Center, p.PatentNumber)
		}
	}
}

func printSoftware(software []nasa.Software) {
	if len(software) == 0 {
		ui.PrintInfo("No software found", "")
		return
	}
	for _, s := range software {
		ui.PrintField(s.CaseNumber, s.Title)
		if s.ReleaseType != "" {
			fmt.Printf("      release: %s  center: %s\n", s.ReleaseType, s.Center)
		}
	}
}

func printSpinoffs(spinoffs []nasa.Spinoff) {
	if len(spinoffs) == 0 {
		ui.PrintInfo("No spinoffs found", "")
		return
	}
	for _, s := range spinoffs {
		ui.PrintField(s.ID, s.Title)
	}
}
