package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/NicolasFive/VideoTingYi/internal/assemblyai"
)

func newTranscriptsCommand() *cobra.Command {
	var (
		apiKey  string
		baseURL string
		limit   int
		status  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "List transcripts stored by AssemblyAI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := assemblyai.NewClient(
				assemblyai.WithAPIKey(apiKey),
				assemblyai.WithBaseURL(baseURL),
				assemblyai.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}

			list, err := client.List(cmd.Context(), assemblyai.ListParams{
				Limit:  limit,
				Status: assemblyai.Status(status),
			})
			if err != nil {
				return fmt.Errorf("list transcripts: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transcripts")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{t.ID, string(t.Status), t.Created, t.AudioURL})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "Created", "Audio"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "AssemblyAI API key (default: $ASSEMBLYAI_KEY)")
	cmd.Flags().StringVar(&baseURL, "base-url", "https://api.assemblyai.com", "AssemblyAI API base URL")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of transcripts")
	cmd.Flags().StringVar(&status, "status", "", "Only list transcripts with this status")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")

	return cmd
}
