package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tvscout/internal/models"
)

const (
	maxSearchResults = 10
	maxSummaryLength = 200
)

var htmlTagRE = regexp.MustCompile(`<[^>]*>`)

// StripHTML returns the text content of a catalog summary.
func StripHTML(html *string) string {
	if html == nil || *html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(*html))
	if err != nil {
		return strings.TrimSpace(htmlTagRE.ReplaceAllString(*html, ""))
	}
	return strings.TrimSpace(doc.Text())
}

// Year extracts the leading four-digit year of a catalog date. Anything else
// yields "".
func Year(date *string) string {
	if date == nil || len(*date) < 4 {
		return ""
	}
	year := (*date)[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return year
}

// YearRange renders "2011 - 2019", "2011" or "".
func YearRange(show models.Show) string {
	start := Year(show.Premiered)
	if start == "" {
		return ""
	}
	if end := Year(show.Ended); end != "" {
		return start + " - " + end
	}
	return start
}

// ImageURL prefers the original rendition over the medium one.
func ImageURL(img *models.Image) string {
	if img == nil {
		return ""
	}
	if img.Original != nil && *img.Original != "" {
		return *img.Original
	}
	if img.Medium != nil {
		return *img.Medium
	}
	return ""
}

// GroupEpisodesBySeason buckets episodes by season number, each bucket
// ordered by episode number.
func GroupEpisodesBySeason(episodes []models.Episode) map[int][]models.Episode {
	grouped := make(map[int][]models.Episode)
	for _, ep := range episodes {
		grouped[ep.Season] = append(grouped[ep.Season], ep)
	}
	for _, eps := range grouped {
		sort.SliceStable(eps, func(i, j int) bool { return eps[i].Number < eps[j].Number })
	}
	return grouped
}

// SeasonNumbers returns the keys of a grouping in ascending order.
func SeasonNumbers(grouped map[int][]models.Episode) []int {
	numbers := make([]int, 0, len(grouped))
	for n := range grouped {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func resolutionURL(asset models.ImageAsset) string {
	if r, ok := asset.Resolutions["original"]; ok && r.URL != "" {
		return r.URL
	}
	if r, ok := asset.Resolutions["medium"]; ok {
		return r.URL
	}
	return ""
}

// CollectPosterImages lists the main show image first, followed by every
// poster from the image gallery, without duplicates.
func CollectPosterImages(show models.Show) []string {
	var posters []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		posters = append(posters, u)
	}

	add(ImageURL(show.Image))
	if show.Embedded != nil {
		for _, asset := range show.Embedded.Images {
			if asset.Type == "poster" {
				add(resolutionURL(asset))
			}
		}
	}
	return posters
}

// BackgroundImage returns the original URL of the first background image.
func BackgroundImage(show models.Show) string {
	if show.Embedded == nil {
		return ""
	}
	for _, asset := range show.Embedded.Images {
		if asset.Type == "background" {
			if r, ok := asset.Resolutions["original"]; ok {
				return r.URL
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func writeShowSummary(b *strings.Builder, show models.Show) {
	if show.Rating != nil && show.Rating.Average != nil {
		fmt.Fprintf(b, "Rating: %.1f\n", *show.Rating.Average)
	}
	if years := YearRange(show); years != "" {
		fmt.Fprintf(b, "Years: %s\n", years)
	}
	if show.Language != nil && *show.Language != "" {
		fmt.Fprintf(b, "Language: %s\n", *show.Language)
	}
	if len(show.Genres) > 0 {
		fmt.Fprintf(b, "Genres: %s\n", strings.Join(show.Genres, ", "))
	}
}

func FormatSearchResults(results []models.SearchResult) string {
	if len(results) == 0 {
		return "No shows found for your search query."
	}

	var message strings.Builder
	message.WriteString("Search Results:\n\n")

	for i, result := range results {
		if i >= maxSearchResults {
			break
		}
		show := result.Show
		fmt.Fprintf(&message, "%d. %s [id %d]\n", i+1, show.Name, show.ID)
		writeShowSummary(&message, show)
		if summary := StripHTML(show.Summary); summary != "" {
			fmt.Fprintf(&message, "Summary: %s\n", truncate(summary, maxSummaryLength))
		}
		message.WriteString("\n")
	}

	return message.String()
}

func FormatShowDetails(show models.Show) string {
	var message strings.Builder
	fmt.Fprintf(&message, "%s [id %d]\n", show.Name, show.ID)
	writeShowSummary(&message, show)
	if show.Externals != nil && show.Externals.IMDb != nil && *show.Externals.IMDb != "" {
		fmt.Fprintf(&message, "IMDb: https://www.imdb.com/title/%s\n", *show.Externals.IMDb)
	}
	if posters := CollectPosterImages(show); len(posters) > 0 {
		fmt.Fprintf(&message, "Poster: %s\n", posters[0])
		if len(posters) > 1 {
			fmt.Fprintf(&message, "More posters: %s\n", strings.Join(posters[1:], ", "))
		}
	}
	if background := BackgroundImage(show); background != "" {
		fmt.Fprintf(&message, "Background: %s\n", background)
	}
	if summary := StripHTML(show.Summary); summary != "" {
		fmt.Fprintf(&message, "\n%s\n", summary)
	}

	if show.Embedded == nil {
		return message.String()
	}

	if cast := show.Embedded.Cast; len(cast) > 0 {
		message.WriteString("\nCast:\n")
		for _, member := range cast {
			fmt.Fprintf(&message, "  %s as %s\n", member.Person.Name, member.Character.Name)
		}
	}

	grouped := GroupEpisodesBySeason(show.Embedded.Episodes)
	if len(grouped) > 0 {
		message.WriteString("\nEpisodes:\n")
		for _, season := range SeasonNumbers(grouped) {
			fmt.Fprintf(&message, "  Season %d\n", season)
			for _, ep := range grouped[season] {
				fmt.Fprintf(&message, "    %dx%02d %s", ep.Season, ep.Number, ep.Name)
				if ep.Runtime != nil {
					fmt.Fprintf(&message, " (%d min)", *ep.Runtime)
				}
				message.WriteString("\n")
			}
		}
	} else if seasons := show.Embedded.Seasons; len(seasons) > 0 {
		fmt.Fprintf(&message, "\nSeasons: %d\n", len(seasons))
	}

	return message.String()
}

func FormatRecent(entries []models.RecentlyVisited) string {
	if len(entries) == 0 {
		return "No recently visited shows."
	}

	var message strings.Builder
	message.WriteString("Recently Visited:\n\n")
	for i, entry := range entries {
		visited := entry.VisitedAt
		if t := entry.VisitedTime(); !t.IsZero() {
			visited = t.Local().Format("Jan 2, 2006 15:04")
		}
		fmt.Fprintf(&message, "%d. %s [id %d] (visited %s)\n", i+1, entry.Show.Name, entry.Show.ID, visited)
	}
	return message.String()
}
