package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/llm"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// normalizeOutput is the JSON printed by the normalize command.
type normalizeOutput struct {
	Strategy llm.Strategy        `json:"strategy"`
	Repaired bool                `json:"repaired"`
	Value    map[string]any      `json:"value,omitempty"`
	Failure  *types.ParseFailure `json:"failure,omitempty"`
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file|-]",
	Short: "Recover a JSON object from raw model output",
	Long:  "Run the model response normalizer on a file (or stdin) and print the recovered object and the strategy that produced it. Useful when tuning prompts.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	raw, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	res := llm.Normalize(string(raw))
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(normalizeOutput{
		Strategy: res.Strategy,
		Repaired: res.Repaired,
		Value:    res.Value,
		Failure:  res.Failure,
	})
}
