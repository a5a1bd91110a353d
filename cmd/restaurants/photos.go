package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUploadCommand(a *app) *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload photos and print their references",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			refs, err := uploadFiles(cmd, api, args, caption)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), refs)
			}
			for i, ref := range refs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[i], ref)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "caption stored with every uploaded photo")
	return cmd
}

func newPhotoCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "photo <photo-ref>",
		Short: "Download a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			photo, err := api.FetchPhoto(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(photo.Data)
				return err
			}
			if err := os.WriteFile(output, photo.Data, 0o644); err != nil {
				return fmt.Errorf("write photo: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s, %d bytes)\n", output, photo.ContentType, len(photo.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write, or "-" for stdout`)
	return cmd
}
