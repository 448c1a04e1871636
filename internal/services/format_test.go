package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tvscout/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "", StripHTML(nil))
	assert.Equal(t, "", StripHTML(ptr("")))
	assert.Equal(t, "Seven noble families fight.", StripHTML(ptr("<p>Seven <b>noble</b> families fight.</p>")))
	assert.Equal(t, "Tom & Jerry", StripHTML(ptr("<p>Tom &amp; Jerry</p>")))
}

func TestYear(t *testing.T) {
	assert.Equal(t, "2011", Year(ptr("2011-04-17")))
	assert.Equal(t, "", Year(ptr("soon")))
	assert.Equal(t, "", Year(ptr("20")))
	assert.Equal(t, "", Year(nil))
}

func TestYearRange(t *testing.T) {
	assert.Equal(t, "2011 - 2019", YearRange(models.Show{Premiered: ptr("2011-04-17"), Ended: ptr("2019-05-19")}))
	assert.Equal(t, "2011", YearRange(models.Show{Premiered: ptr("2011-04-17")}))
	assert.Equal(t, "", YearRange(models.Show{Ended: ptr("2019-05-19")}))
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "", ImageURL(nil))
	assert.Equal(t, "o.jpg", ImageURL(&models.Image{Medium: ptr("m.jpg"), Original: ptr("o.jpg")}))
	assert.Equal(t, "m.jpg", ImageURL(&models.Image{Medium: ptr("m.jpg")}))
}

func TestGroupEpisodesBySeason(t *testing.T) {
	grouped := GroupEpisodesBySeason([]models.Episode{
		{ID: 1, Season: 2, Number: 2},
		{ID: 2, Season: 1, Number: 1},
		{ID: 3, Season: 2, Number: 1},
	})

	assert.Equal(t, []int{1, 2}, SeasonNumbers(grouped))
	assert.Len(t, grouped[1], 1)
	assert.Equal(t, int64(3), grouped[2][0].ID)
	assert.Equal(t, int64(1), grouped[2][1].ID)
}

func TestPosterAndBackgroundImages(t *testing.T) {
	show := models.Show{
		Image: &models.Image{Original: ptr("main.jpg")},
		Embedded: &models.Embedded{Images: []models.ImageAsset{
			{ID: 1, Type: "poster", Resolutions: map[string]models.Resolution{"original": {URL: "main.jpg"}}},
			{ID: 2, Type: "background", Resolutions: map[string]models.Resolution{"original": {URL: "bg.jpg"}}},
			{ID: 3, Type: "poster", Resolutions: map[string]models.Resolution{"medium": {URL: "p2.jpg"}}},
			{ID: 4, Type: "banner", Resolutions: map[string]models.Resolution{"original": {URL: "banner.jpg"}}},
		}},
	}

	assert.Equal(t, []string{"main.jpg", "p2.jpg"}, CollectPosterImages(show))
	assert.Equal(t, "bg.jpg", BackgroundImage(show))
	assert.Equal(t, "", BackgroundImage(models.Show{}))
	assert.Empty(t, CollectPosterImages(models.Show{}))
}

func TestFormatSearchResults(t *testing.T) {
	assert.Equal(t, "No shows found for your search query.", FormatSearchResults(nil))

	results := make([]models.SearchResult, 0, 12)
	for i := int64(1); i <= 12; i++ {
		results = append(results, models.SearchResult{Score: 1, Show: models.Show{ID: i, Name: "Show"}})
	}
	results[0].Show.Summary = ptr("<p>" + strings.Repeat("a", 300) + "</p>")
	results[0].Show.Rating = &models.Rating{Average: ptr(8.25)}

	out := FormatSearchResults(results)
	assert.Contains(t, out, "1. Show [id 1]")
	assert.Contains(t, out, "Rating: 8.2")
	assert.Contains(t, out, strings.Repeat("a", maxSummaryLength)+"...")
	assert.Contains(t, out, "10. Show [id 10]")
	assert.NotContains(t, out, "[id 11]")
}

func TestFormatShowDetails(t *testing.T) {
	show := models.Show{
		ID:        82,
		Name:      "Game of Thrones",
		Genres:    []string{"Drama", "Fantasy"},
		Premiered: ptr("2011-04-17"),
		Ended:     ptr("2019-05-19"),
		Externals: &models.Externals{IMDb: ptr("tt0944947")},
		Embedded: &models.Embedded{
			Cast: []models.CastMember{{
				Person:    models.Person{ID: 1, Name: "Kit Harington"},
				Character: models.Character{ID: 2, Name: "Jon Snow"},
			}},
			Episodes: []models.Episode{
				{ID: 2, Name: "The Kingsroad", Season: 1, Number: 2},
				{ID: 1, Name: "Winter Is Coming", Season: 1, Number: 1, Runtime: ptr(60)},
			},
		},
	}

	out := FormatShowDetails(show)
	assert.Contains(t, out, "Game of Thrones [id 82]")
	assert.Contains(t, out, "Years: 2011 - 2019")
	assert.Contains(t, out, "Genres: Drama, Fantasy")
	assert.Contains(t, out, "IMDb: https://www.imdb.com/title/tt0944947")
	assert.Contains(t, out, "Kit Harington as Jon Snow")
	assert.Less(t, strings.Index(out, "1x01 Winter Is Coming (60 min)"), strings.Index(out, "1x02 The Kingsroad"))
}

func TestFormatRecent(t *testing.T) {
	assert.Equal(t, "No recently visited shows.", FormatRecent(nil))

	out := FormatRecent([]models.RecentlyVisited{
		{Show: models.Show{ID: 1, Name: "A"}, VisitedAt: "2024-01-02T03:04:05.000Z"},
		{Show: models.Show{ID: 2, Name: "B"}, VisitedAt: "garbage"},
	})
	assert.Contains(t, out, "1. A [id 1]")
	assert.Contains(t, out, "2. B [id 2] (visited garbage)")
}

func TestFormatShowDetailsImages(t *testing.T) {
	show := models.Show{
		ID:    1,
		Name:  "Girls",
		Image: &models.Image{Medium: ptr("main-m.jpg")},
		Embedded: &models.Embedded{Images: []models.ImageAsset{
			{ID: 1, Type: "poster", Resolutions: map[string]models.Resolution{"original": {URL: "p1.jpg"}}},
			{ID: 2, Type: "background", Resolutions: map[string]models.Resolution{"original": {URL: "bg.jpg"}}},
		}},
	}

	out := FormatShowDetails(show)
	assert.Contains(t, out, "Poster: main-m.jpg\n")
	assert.Contains(t, out, "More posters: p1.jpg\n")
	assert.Contains(t, out, "Background: bg.jpg\n")

	out = FormatShowDetails(models.Show{ID: 2, Name: "Bare"})
	assert.NotContains(t, out, "Poster:")
	assert.NotContains(t, out, "Background:")
}
