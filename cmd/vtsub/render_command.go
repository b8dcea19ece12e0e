package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/NicolasFive/VideoTingYi/internal/media"
	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

type renderOptions struct {
	transcript string
	fragments  string
	video      string
	ffprobe    string
	width      int
	height     int
	font       string
	output     string
	stats      bool
}

func newRenderCommand() *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an .ass subtitle file from a transcript",
		Long: `Render splits every utterance of a transcript into sentences, aligns
them to the word timestamps and lays the fragments out as timed cues.

Without --fragments each sentence is shown in its source language.
A fragments file holds one JSON array of strings per aligned sentence, in the
order printed by "vtsub sentences".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.transcript, "transcript", "t", "", "Transcript JSON (utterance array or AssemblyAI transcript)")
	cmd.Flags().StringVarP(&opts.fragments, "fragments", "f", "", "Translated fragments JSON")
	cmd.Flags().StringVar(&opts.video, "video", "", "Probe width and height from this video with ffprobe")
	cmd.Flags().StringVar(&opts.ffprobe, "ffprobe", "", "ffprobe binary (default: from PATH)")
	cmd.Flags().IntVar(&opts.width, "width", 1920, "Video width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 1080, "Video height in pixels")
	cmd.Flags().StringVar(&opts.font, "font", subtitle.DefaultFontName, "Subtitle font name")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output .ass path")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print build statistics as JSON")
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runRender(cmd *cobra.Command, opts renderOptions) error {
	logger := slog.Default()

	utterances, err := readUtterances(opts.transcript)
	if err != nil {
		return err
	}

	dim := subtitle.VideoDimension{Width: opts.width, Height: opts.height}
	if opts.video != "" {
		prober := media.NewFFmpegProcessor("", media.WithFFprobePath(opts.ffprobe))
		dim, err = prober.ProbeDimensions(cmd.Context(), opts.video)
		if err != nil {
			return fmt.Errorf("probe video: %w", err)
		}
	}
	if dim.Width <= 0 || dim.Height <= 0 {
		return errors.New("width and height must be positive")
	}
	size := subtitle.CalcSize(dim)

	alignments := subtitle.SplitUtterances(utterances)
	texts := subtitle.Texts(alignments)

	var fragments [][]string
	if opts.fragments != "" {
		fragments, err = readFragments(opts.fragments)
		if err != nil {
			return err
		}
		if len(fragments) != len(texts) {
			logger.Warn("fragment count does not match aligned sentences",
				slog.Int("fragments", len(fragments)),
				slog.Int("sentences", len(texts)),
			)
		}
	} else {
		fragments = sourceFragments(texts)
	}

	cues, stats := subtitle.Build(alignments, fragments, size)
	if err := subtitle.WriteFile(opts.output, cues, subtitle.OptionsFor(size, opts.font)); err != nil {
		return fmt.Errorf("write subtitle: %w", err)
	}

	logger.Info("subtitle rendered",
		slog.String("output", opts.output),
		slog.Int("font_size", size.FontSize),
		slog.Int("chunk_size", size.ChunkSize()),
		slog.Int("cues", stats.Cues),
		slog.Int("failed", stats.Failed),
	)

	if opts.stats {
		return writeJSON(cmd, stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s\n", stats.Cues, opts.output)
	return nil
}
