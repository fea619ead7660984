package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/analysis"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

var (
	analyzeInput string
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a saved search result",
	Long: `Generate the prospect profile, business insights and sales tools for a search result.

The input is the JSON printed by "prospectpulse search --json" (or the body of a
GET /api/prospect/search response). Use --input - to read it from stdin.`,
	Example: `  prospectpulse search "Luigi's Pizzeria" --json > luigis.json
  prospectpulse analyze --input luigis.json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "Path to search result JSON, or - for stdin (required)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the raw JSON response")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	raw, err := readInput(cmd, analyzeInput)
	if err != nil {
		return err
	}

	var req types.AnalyzeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return eris.Wrap(err, "invalid search result JSON")
	}
	if req.ID == "" {
		return eris.New("input has no prospect id")
	}
	if !req.HasData() {
		return eris.New("input has no search data, run the search command first")
	}

	a, err := newApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.analyzer.Analyze(cmd.Context(), &req)
	if err != nil {
		if eris.Is(err, analysis.ErrLLMNotConfigured) {
			return eris.New("AI service not configured: set GEMINI_API_KEY or llm.api_key")
		}
		return eris.Wrap(err, "analysis failed")
	}

	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintAnalysis(resp)
	return nil
}

// readInput reads path, or the command's stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}
