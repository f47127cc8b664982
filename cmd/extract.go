package main

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cityobj/internal/extract"
	"github.com/sells-group/cityobj/internal/numbered"
	"github.com/sells-group/cityobj/internal/pipeline"
)

var extractText string

// extraction is the candidate breakdown printed by the extract command.
type extraction struct {
	FreeForm   []string `json:"free_form"`
	Numbered   []string `json:"numbered"`
	Candidates []string `json:"candidates"`
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the object candidates found in a piece of text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res := extractCandidates(ctx, env.Extractor, env.Recognizer, extractText)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "encode candidates")
	},
}

func extractCandidates(ctx context.Context, ex extract.FactExtractor, rec *numbered.Recognizer, text string) extraction {
	free := extract.Candidates(ctx, ex, &text)
	num := rec.Phrases(text)
	return extraction{
		FreeForm:   free,
		Numbered:   num,
		Candidates: pipeline.Merge(free, num),
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractText, "text", "", "text to analyse (required)")
	_ = extractCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(extractCmd)
}
