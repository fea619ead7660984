package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/server"
)

var (
	searchLocation string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Research a prospect from the command line",
	Long:  "Run the same comprehensive search as GET /api/prospect/search and print the result. Use --json to get output suitable for the analyze command.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "Location hint, e.g. a city")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the raw JSON response")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])
	if query == "" {
		return eris.New("query must not be empty")
	}

	a, err := newApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := server.Search(cmd.Context(), a.collector, server.NewProspectID(time.Now()), query, strings.TrimSpace(searchLocation))
	if err != nil {
		return eris.Wrap(err, "search")
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintSearch(resp)
	return nil
}
