package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"mesaYaReviews/internal/modules/restaurants/application/usecase"
	"mesaYaReviews/internal/modules/restaurants/domain"
)

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printSearch(w io.Writer, result usecase.SearchResult) error {
	if len(result.Page.Content) == 0 {
		_, err := fmt.Fprintln(w, "No restaurants found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCUISINE\tRATING\tREVIEWS\tADDRESS")
	for _, r := range result.Page.Content {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%d\t%s\n", r.ID, r.Name, r.CuisineType, r.AverageRating, r.TotalReviews, r.Address.Line())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, renderWindow(result))
	return err
}

// renderWindow draws the page bar, e.g. "‹ 1 … 4 [5] 6 … 9 ›".
func renderWindow(result usecase.SearchResult) string {
	parts := make([]string, 0, len(result.Window)+2)
	if result.HasPrevious() {
		parts = append(parts, "‹")
	}
	for _, item := range result.Window {
		switch {
		case item.Ellipsis:
			parts = append(parts, "…")
		case item.Number == result.CurrentPage:
			parts = append(parts, "["+strconv.Itoa(item.Number)+"]")
		default:
			parts = append(parts, strconv.Itoa(item.Number))
		}
	}
	if result.HasNext() {
		parts = append(parts, "›")
	}
	return strings.Join(parts, " ")
}

func printRestaurant(w io.Writer, r domain.Restaurant) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", r.Name)
	fmt.Fprintf(tw, "Cuisine:\t%s\n", r.CuisineType)
	fmt.Fprintf(tw, "Contact:\t%s\n", r.ContactInformation)
	fmt.Fprintf(tw, "Address:\t%s\n", r.Address.Line())
	fmt.Fprintf(tw, "Rating:\t%.1f (%d reviews)\n", r.AverageRating, len(r.Reviews))
	if r.GeoLocation != nil {
		fmt.Fprintf(tw, "Location:\t%.5f, %.5f\n", r.GeoLocation.Latitude, r.GeoLocation.Longitude)
	}
	for _, day := range domain.Week {
		hours := "closed"
		if slot := r.OperatingHours.Day(day); slot != nil {
			hours = slot.OpenTime + "-" + slot.CloseTime
		}
		fmt.Fprintf(tw, "%s:\t%s\n", day.Label(), hours)
	}
	for i, photo := range r.Photos {
		fmt.Fprintf(tw, "Photo %d:\t%s\n", i, photo.Ref())
	}
	return tw.Flush()
}

func printReviews(w io.Writer, reviews []domain.Review) error {
	if len(reviews) == 0 {
		_, err := fmt.Fprintln(w, "No reviews yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRATING\tAUTHOR\tPOSTED\tCONTENT")
	for _, review := range reviews {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", review.ID, review.Rating, author(review.WrittenBy), review.DatePosted.Format("2006-01-02 15:04"), oneLine(review.Content, 60))
	}
	return tw.Flush()
}

func printReview(w io.Writer, review domain.Review) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", review.ID)
	fmt.Fprintf(tw, "Rating:\t%d\n", review.Rating)
	fmt.Fprintf(tw, "Author:\t%s\n", author(review.WrittenBy))
	fmt.Fprintf(tw, "Posted:\t%s\n", review.DatePosted.Format("2006-01-02 15:04"))
	if !review.LastEdited.IsZero() && !review.LastEdited.Equal(review.DatePosted.Time) {
		fmt.Fprintf(tw, "Edited:\t%s\n", review.LastEdited.Format("2006-01-02 15:04"))
	}
	for i, photo := range review.Photos {
		fmt.Fprintf(tw, "Photo %d:\t%s\n", i, photo.Ref())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", review.Content)
	return err
}

func author(user *domain.User) string {
	if user == nil {
		return "anonymous"
	}
	if name := strings.TrimSpace(user.GivenName + " " + user.FamilyName); name != "" {
		return name
	}
	if user.Username != "" {
		return user.Username
	}
	return user.ID
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return s
}
