package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// NewAudioCommand creates the audio command group.
func NewAudioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Record, import, play and delete audio notes",
	}
	cmd.AddCommand(newAudioRecordCommand(rootOpts))
	cmd.AddCommand(newAudioImportCommand(rootOpts))
	cmd.AddCommand(newAudioPlayCommand(rootOpts))
	cmd.AddCommand(newAudioDeleteCommand(rootOpts))
	return cmd
}

func newAudioRecordCommand(rootOpts *RootOptions) *cobra.Command {
	var seconds float64
	cmd := &cobra.Command{
		Use:   "record <recipe-id>",
		Short: "Record raw PCM from stdin as a new audio note",
		Long: `Record raw PCM from stdin as a new audio note.

Input is signed 16-bit little-endian mono at 24 kHz. Recording stops at
end of input, after --seconds, or on Ctrl-C, and the note is saved.

Example:
  arecord -f S16_LE -r 24000 -c 1 -t raw | voyage audio record 0192... --seconds 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				recipeID := args[0]
				if _, err := a.repo.Aggregate(ctx, recipeID); err != nil {
					return err
				}

				waitCtx, cancel := signalContext(ctx, a.logger)
				defer cancel()
				rec, err := a.audio.RecordStart(waitCtx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to start recording", err)
				}

				var limit <-chan time.Time
				if seconds > 0 {
					timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
					defer timer.Stop()
					limit = timer.C
				}
				select {
				case <-rec.Done():
				case <-limit:
				case <-waitCtx.Done():
				}

				filename, dur, err := a.audio.RecordStop(rec)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to save recording", err)
				}
				return a.attachAudio(ctx, recipeID, filename, dur)
			})
		},
	}
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "stop after this many seconds (0 records until end of input)")
	return cmd
}

func newAudioImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <recipe-id> <file.wav>",
		Short: "Copy a PCM WAV file in as a new audio note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				if _, err := a.repo.Aggregate(ctx, args[0]); err != nil {
					return err
				}
				filename, dur, err := a.audio.Import(ctx, args[1])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to import audio", err)
				}
				return a.attachAudio(ctx, args[0], filename, dur)
			})
		},
	}
}

// attachAudio records a saved file against recipeID, removing the file if
// the record cannot be created.
func (a *app) attachAudio(ctx context.Context, recipeID, filename string, dur float64) error {
	note, err := a.repo.AddAudioNote(ctx, recipeID, filename, dur)
	if err != nil {
		if delErr := a.audio.DeleteFile(ctx, filename); delErr != nil {
			a.logger.Warn("failed to remove orphaned audio file", "filename", filename, "error", delErr)
		}
		return err
	}
	return a.out.Success(result{Action: "added", Kind: "audio", ID: note.ID, Entity: note})
}

func newAudioPlayCommand(rootOpts *RootOptions) *cobra.Command {
	var noteID string
	cmd := &cobra.Command{
		Use:   "play <recipe-id>",
		Short: "Play a recipe's most recent audio note, or --note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				agg, err := a.repo.Aggregate(ctx, args[0])
				if err != nil {
					return err
				}
				note := agg.PrimaryAudio()
				if noteID != "" {
					note = nil
					for i := range agg.AudioNotes {
						if agg.AudioNotes[i].ID == noteID {
							note = &agg.AudioNotes[i]
						}
					}
				}
				if note == nil {
					return model.NewNotFound("play_audio", "audio note", noteID)
				}

				playCtx, cancel := signalContext(ctx, a.logger)
				defer cancel()
				if err := a.audio.Play(playCtx, note.Filename); err != nil {
					return WrapExitError(ExitCommandError, "playback failed", err)
				}
				return a.out.Success(result{Action: "played", Kind: "audio", ID: note.ID})
			})
		},
	}
	cmd.Flags().StringVar(&noteID, "note", "", "audio note id (default: most recent)")
	return cmd
}

func newAudioDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete an audio note and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.repo.DeleteAudioNote(ctx, args[0]); err != nil {
					return err
				}
				return a.out.Success(result{Action: "deleted", Kind: "audio", ID: args[0]})
			})
		},
	}
}
