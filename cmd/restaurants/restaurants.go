package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/application/usecase"
	"mesaYaReviews/internal/modules/restaurants/domain"
)

func newSearchCommand(a *app) *cobra.Command {
	var query usecase.SearchQuery
	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search restaurants by name or cuisine",
		RunE: func(cmd *cobra.Command, args []string) error {
			query.Q = strings.Join(args, " ")
			params := domain.SearchParams{Q: query.Q, MinRating: query.MinRating}
			if err := params.Validate(); err != nil {
				return err
			}
			coordinator, err := a.searchCoordinator()
			if err != nil {
				return err
			}
			result, err := coordinator.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), result.Page)
			}
			return printSearch(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&query.MinRating, "min-rating", 0, "only restaurants rated at least this (1-5)")
	cmd.Flags().IntVar(&query.Page, "page", 1, "results page, starting at 1")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <restaurant-id>",
		Short: "Show a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			restaurant, err := api.GetRestaurant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), restaurant)
			}
			return printRestaurant(cmd.OutOrStdout(), restaurant)
		},
	}
}

func newCreateCommand(a *app) *cobra.Command {
	var file string
	var photos []string
	cmd := &cobra.Command{
		Use:   "create --file restaurant.yaml",
		Short: "Create a restaurant from a YAML request file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequestFile[domain.RestaurantRequest](file)
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			uploaded, err := uploadFiles(cmd, api, photos, "")
			if err != nil {
				return err
			}
			req.PhotoIDs = append(req.PhotoIDs, uploaded...)
			restaurant, err := api.CreateRestaurant(cmd.Context(), req)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), restaurant)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created restaurant %s\n", restaurant.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML restaurant request")
	cmd.Flags().StringArrayVar(&photos, "photo", nil, "image file to upload and attach (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var file string
	var photos []string
	var remove []int
	cmd := &cobra.Command{
		Use:   "update <restaurant-id> --file restaurant.yaml",
		Short: "Replace a restaurant's details",
		Long: "Replace a restaurant's details. When the request file lists no photoIds the current " +
			"photos are kept; --photo appends uploads and --remove-photo drops photos by their " +
			"position in the combined list shown by get, followed by the new files.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequestFile[domain.RestaurantRequest](file)
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}

			selection := usecase.PhotoSelection{}
			if len(req.PhotoIDs) == 0 {
				current, err := api.GetRestaurant(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				selection.Existing = current.Photos
			} else {
				for _, id := range req.PhotoIDs {
					selection.Existing = append(selection.Existing, domain.Photo{ID: id})
				}
			}
			pending, closeFiles, err := openUploads(photos, "")
			if err != nil {
				return err
			}
			defer closeFiles()
			selection.Pending = pending
			selection = removeSelected(selection, remove)

			uploaded, err := usecase.UploadPhotos(cmd.Context(), api, selection.Pending)
			if err != nil {
				return err
			}
			req.PhotoIDs = usecase.MergePhotoIDs(selection.Existing, uploaded)
			if err := api.UpdateRestaurant(cmd.Context(), args[0], req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated restaurant %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML restaurant request")
	cmd.Flags().StringArrayVar(&photos, "photo", nil, "image file to upload and attach (repeatable)")
	cmd.Flags().IntSliceVar(&remove, "remove-photo", nil, "zero-based photo position to drop (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// removeSelected drops the given combined indexes, highest first so earlier ones stay valid.
func removeSelected(selection usecase.PhotoSelection, indexes []int) usecase.PhotoSelection {
	sorted := slices.Clone(indexes)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	slices.Reverse(sorted)
	for _, index := range sorted {
		selection = selection.RemoveAt(index)
	}
	return selection
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <restaurant-id>",
		Short: "Delete a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			if err := api.DeleteRestaurant(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted restaurant %s\n", args[0])
			return nil
		},
	}
}

func readRequestFile[T any](path string) (T, error) {
	var req T
	f, err := os.Open(path)
	if err != nil {
		return req, fmt.Errorf("open request file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("parse %s: %w", path, err)
	}
	return req, nil
}

// openUploads opens every path for upload. The returned func closes them all.
func openUploads(paths []string, caption string) ([]port.PhotoUpload, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	uploads := make([]port.PhotoUpload, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open photo: %w", err)
		}
		files = append(files, f)
		uploads = append(uploads, port.PhotoUpload{Filename: filepath.Base(path), Content: f, Caption: caption})
	}
	return uploads, closeAll, nil
}

func uploadFiles(cmd *cobra.Command, api usecase.PhotoUploader, paths []string, caption string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	uploads, closeFiles, err := openUploads(paths, caption)
	if err != nil {
		return nil, err
	}
	defer closeFiles()
	return usecase.UploadPhotos(cmd.Context(), api, uploads)
}
