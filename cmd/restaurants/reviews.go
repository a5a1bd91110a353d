package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/domain"
)

func newReviewsCommand(a *app) *cobra.Command {
	var sort string
	var params domain.ReviewListParams
	cmd := &cobra.Command{
		Use:   "reviews <restaurant-id>",
		Short: "List a restaurant's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseReviewSort(sort)
			if err != nil {
				return err
			}
			params.Sort = parsed
			api, err := a.client()
			if err != nil {
				return err
			}
			page, err := api.ListReviews(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			if err := printReviews(cmd.OutOrStdout(), page.Content); err != nil {
				return err
			}
			if page.TotalPages > 1 && page.Number != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (--page is zero-based)\n", *page.Number+1, page.TotalPages)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "", "datePosted,desc | datePosted,asc | rating,desc | rating,asc")
	cmd.Flags().IntVar(&params.Page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&params.Size, "size", 0, "page size (server default when 0)")
	return cmd
}

func newReviewCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Read and write individual reviews",
	}
	cmd.AddCommand(
		newReviewGetCommand(a),
		newReviewAddCommand(a),
		newReviewEditCommand(a),
		newReviewDeleteCommand(a),
	)
	return cmd
}

func newReviewGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <restaurant-id> <review-id>",
		Short: "Show one review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			review, err := api.GetReview(cmd.Context(), args[0], args[1])
			if errors.Is(err, port.ErrReviewNotFound) {
				return fmt.Errorf("restaurant %s has no review %s: %w", args[0], args[1], err)
			}
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), review)
			}
			return printReview(cmd.OutOrStdout(), review)
		},
	}
}

type reviewFlags struct {
	content string
	rating  int
	photos  []string
	caption string
}

func (f *reviewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.content, "content", "c", "", "review text")
	cmd.Flags().IntVarP(&f.rating, "rating", "r", 0, "rating from 1 to 5")
	cmd.Flags().StringArrayVar(&f.photos, "photo", nil, "image file to upload and attach (repeatable)")
	cmd.Flags().StringVar(&f.caption, "caption", "", "caption for uploaded photos")
	_ = cmd.MarkFlagRequired("content")
	_ = cmd.MarkFlagRequired("rating")
}

func (f *reviewFlags) request(cmd *cobra.Command, a *app) (domain.ReviewRequest, error) {
	if f.rating < 1 || f.rating > 5 {
		return domain.ReviewRequest{}, fmt.Errorf("--rating %d must be between 1 and 5", f.rating)
	}
	api, err := a.client()
	if err != nil {
		return domain.ReviewRequest{}, err
	}
	refs, err := uploadFiles(cmd, api, f.photos, f.caption)
	if err != nil {
		return domain.ReviewRequest{}, err
	}
	return domain.ReviewRequest{Content: f.content, Rating: f.rating, PhotoIDs: refs}, nil
}

func newReviewAddCommand(a *app) *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "add <restaurant-id>",
		Short: "Post a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd, a)
			if err != nil {
				return err
			}
			review, err := a.api.CreateReview(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), review)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted review %s\n", review.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newReviewEditCommand(a *app) *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "edit <restaurant-id> <review-id>",
		Short: "Replace your review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd, a)
			if err != nil {
				return err
			}
			if err := a.api.UpdateReview(cmd.Context(), args[0], args[1], req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated review %s\n", args[1])
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newReviewDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <restaurant-id> <review-id>",
		Short: "Delete a review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			if err := api.DeleteReview(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted review %s\n", args[1])
			return nil
		},
	}
}
