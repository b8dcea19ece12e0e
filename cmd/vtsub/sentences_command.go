package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

type sentenceRow struct {
	Speaker string `json:"speaker"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Status  string `json:"status"`
	Text    string `json:"text"`
}

func newSentencesCommand() *cobra.Command {
	var transcript string
	var jsonOut, textsOnly bool

	cmd := &cobra.Command{
		Use:   "sentences",
		Short: "Show the sentences of a transcript and how they aligned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			utterances, err := readUtterances(transcript)
			if err != nil {
				return err
			}
			alignments := subtitle.SplitUtterances(utterances)

			// The texts array is what a fragments file must line up with.
			if textsOnly {
				return writeJSON(cmd, subtitle.Texts(alignments))
			}

			rows := make([]sentenceRow, 0, len(alignments))
			for _, a := range alignments {
				rows = append(rows, sentenceRow{
					Speaker: a.Sentence.Speaker,
					Start:   a.Sentence.Start,
					End:     a.Sentence.End,
					Status:  a.Status.String(),
					Text:    a.Sentence.Text,
				})
			}
			if jsonOut {
				return writeJSON(cmd, rows)
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				start, end := "-", "-"
				if r.Status != subtitle.AlignFailed.String() {
					start = subtitle.FormatTime(r.Start)
					end = subtitle.FormatTime(r.End)
				}
				table = append(table, []string{r.Speaker, start, end, r.Status, r.Text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Speaker", "Start", "End", "Align", "Text"},
				table,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(len(rows))+" sentences")
			return nil
		},
	}

	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "Transcript JSON (utterance array or AssemblyAI transcript)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&textsOnly, "texts", false, "Output only the texts of aligned sentences as a JSON array")
	_ = cmd.MarkFlagRequired("transcript")

	return cmd
}
