package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var fileFlag string
	var videoFlag string
	var textFlag string
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a lesson from an audio file, a video id or raw text",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := resolveSource(fileFlag, videoFlag, textFlag)
			if err != nil {
				return err
			}

			pipeline, _, store, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			defer store.Close()

			onProgress := func(ev entities.ProgressEvent) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%-12s %5.1f%%\n", ev.Stage, ev.Percent)
			}

			l, err := pipeline.Run(cmd.Context(), src, onProgress)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(l.Export(), "", "  ")
			if err != nil {
				return err
			}

			if outputFlag != "" {
				if err := os.WriteFile(outputFlag, data, 0o644); err != nil {
					return fmt.Errorf("write lesson: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Lesson written to %s\n", outputFlag)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Path to an audio file")
	cmd.Flags().StringVar(&videoFlag, "video", "", "Remote video id")
	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Raw Arabic text, or @path to read it from a file")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the lesson JSON to this path instead of stdout")

	return cmd
}

func resolveSource(file, video, text string) (entities.Source, error) {
	set := 0
	for _, v := range []string{file, video, text} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return entities.Source{}, fmt.Errorf("exactly one of --file, --video or --text is required")
	}

	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return entities.Source{}, fmt.Errorf("read audio file: %w", err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(file))
		return entities.NewUploadSource(filepath.Base(file), mimeType, data), nil

	case video != "":
		return entities.NewRemoteSource(video), nil

	default:
		if strings.HasPrefix(text, "@") {
			data, err := os.ReadFile(strings.TrimPrefix(text, "@"))
			if err != nil {
				return entities.Source{}, fmt.Errorf("read text file: %w", err)
			}
			return entities.NewTextSource(string(data)), nil
		}
		return entities.NewTextSource(text), nil
	}
}
