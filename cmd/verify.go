package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tunelore/coverart/internal/model"
)

var (
	verifyTitle    string
	verifyArtist   string
	verifyLanguage string
	verifyAlbum    string
	verifySongID   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify cover art for a single song",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Service.Verify(ctx, model.QueryMeta{
			Title:    verifyTitle,
			Artist:   verifyArtist,
			Language: verifyLanguage,
			Album:    verifyAlbum,
		}, verifySongID)
		if err != nil {
			return err
		}

		printResult(result)
		return nil
	},
}

func printResult(result *model.VerificationResult) {
	if !result.Verified {
		color.Red("✗ no verified cover (%s)", result.Error)
		return
	}

	if result.Cached {
		color.Cyan("✓ verified (cached)")
	} else {
		color.Green("✓ verified in %dms", result.VerificationTimeMS)
	}
	color.White("  source:  %s", result.Source)
	color.White("  cover:   %s", result.CoverURL)
	if result.Metadata != nil {
		color.White("  matched: %s / %s", result.Metadata.Title, result.Metadata.Artist)
	}
	if result.Scores != nil {
		color.White("  scores:  title %.2f, artist %.2f", result.Scores.Title, result.Scores.Artist)
	}
}

func init() {
	verifyCmd.Flags().StringVar(&verifyTitle, "title", "", "song title (required)")
	verifyCmd.Flags().StringVar(&verifyArtist, "artist", "", "artist name (required)")
	verifyCmd.Flags().StringVar(&verifyLanguage, "language", "", "expected language")
	verifyCmd.Flags().StringVar(&verifyAlbum, "album", "", "album name")
	verifyCmd.Flags().StringVar(&verifySongID, "song-id", "", "cache key for the verification result")
	verifyCmd.MarkFlagRequired("title")
	verifyCmd.MarkFlagRequired("artist")
	rootCmd.AddCommand(verifyCmd)
}
