package hianime

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hibiki/internal/media"
)

// parseCards extracts anime cards from a search or listing page.
func parseCards(doc *goquery.Document) []media.SearchResult {
	var results []media.SearchResult

	doc.Find("div.flw-item").Each(func(_ int, s *goquery.Selection) {
		detail := s.Find("div.film-detail a").First()

		href := detail.AttrOr("href", "")
		// The card link carries tracking query params.
		pageURL := strings.SplitN(href, "?", 2)[0]

		title := detail.AttrOr("data-jname", "")
		if title == "" {
			title = detail.AttrOr("title", "")
		}
		if title == "" {
			title = strings.TrimSpace(detail.Text())
		}

		thumbnail := s.Find("div.film-poster > img").AttrOr("data-src", "")

		id := ""
		if pageURL != "" {
			parts := strings.Split(pageURL, "/")
			id = parts[len(parts)-1]
		}

		if id == "" {
			return
		}

		results = append(results, media.SearchResult{
			ID:        id,
			Title:     title,
			URL:       pageURL,
			Thumbnail: thumbnail,
		})
	})

	return results
}

// hasNextPage reports whether the pagination bar carries a Next link.
func hasNextPage(doc *goquery.Document) bool {
	return doc.Find(`li.page-item a[title=Next]`).Length() > 0
}

// infoValue pulls one labeled field out of the anisc-info section.
// List-shaped items (genres) join their link texts.
func infoValue(doc *goquery.Document, label string) string {
	var value string

	doc.Find("div.anisc-info div.item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		head := strings.TrimSpace(s.Find(".item-head").Text())
		if head != label {
			return true
		}

		if s.HasClass("item-list") {
			var parts []string
			s.Find("a").Each(func(_ int, a *goquery.Selection) {
				if t := strings.TrimSpace(a.Text()); t != "" {
					parts = append(parts, t)
				}
			})
			value = strings.Join(parts, ", ")
			return false
		}

		value = strings.TrimSpace(s.Find(".name, .text").First().Text())
		return false
	})

	return value
}

// parseDetail extracts anime metadata from an info page.
func parseDetail(doc *goquery.Document, animeID, pageURL string) media.AnimeDetail {
	detail := media.AnimeDetail{
		ID:  animeID,
		URL: pageURL,
	}

	detail.Thumbnail = doc.Find("div.anisc-poster img").AttrOr("src", "")

	title := doc.Find("h2.film-name").First()
	detail.Title = strings.TrimSpace(title.Text())
	if detail.Title == "" {
		detail.Title = animeID
	}
	detail.JapaneseTitle = title.AttrOr("data-jname", "")

	detail.Status = "Unknown"
	switch status := infoValue(doc, "Status:"); {
	case strings.Contains(status, "Currently Airing"):
		detail.Status = "Ongoing"
	case strings.Contains(status, "Finished Airing"):
		detail.Status = "Completed"
	}

	detail.Studios = infoValue(doc, "Studios:")
	detail.Genres = infoValue(doc, "Genres:")

	var description []string
	if v := infoValue(doc, "Overview:"); v != "" {
		description = append(description, v)
	}
	if v := infoValue(doc, "Aired:"); v != "" {
		description = append(description, "Aired: "+v)
	}
	if v := infoValue(doc, "Premiered:"); v != "" {
		description = append(description, "Premiered: "+v)
	}
	if v := infoValue(doc, "Synonyms:"); v != "" {
		description = append(description, "Synonyms: "+v)
	}
	if v := infoValue(doc, "Japanese:"); v != "" {
		description = append(description, "Japanese: "+v)
	}
	detail.Description = strings.Join(description, "\n")

	return detail
}

// parseEpisodes extracts the episode list from an AJAX HTML fragment,
// sorted ascending by episode number (fractional numbers sort between
// their neighbors).
func parseEpisodes(doc *goquery.Document) []media.Episode {
	var episodes []media.Episode

	doc.Find("a.ep-item").Each(func(_ int, s *goquery.Selection) {
		numStr := s.AttrOr("data-number", "1")
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			num = 1
		}

		href := s.AttrOr("href", "")
		id := s.AttrOr("data-id", "")
		if idx := strings.Index(href, "?ep="); idx != -1 {
			id = href[idx+len("?ep="):]
		}

		episodes = append(episodes, media.Episode{
			ID:     id,
			Number: num,
			Title:  "Ep. " + numStr + ": " + s.AttrOr("title", ""),
			Filler: s.HasClass("ssl-item-filler"),
			URL:    href,
		})
	})

	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Number < episodes[j].Number
	})

	return episodes
}

// bucketSections maps the fragment's markup sections to track type buckets.
var bucketSections = []struct {
	class string
	typ   media.TrackType
}{
	{"servers-sub", media.TrackSub},
	{"servers-dub", media.TrackDub},
	{"servers-raw", media.TrackRaw},
	{"servers-mixed", media.TrackMixed},
}

// parseServers classifies an episode's hosters by their containing markup
// section. Hosters with unrecognized names are silently dropped.
func parseServers(doc *goquery.Document) media.ServerMap {
	servers := media.ServerMap{
		media.TrackSub:   {},
		media.TrackDub:   {},
		media.TrackRaw:   {},
		media.TrackMixed: {},
	}

	for _, section := range bucketSections {
		doc.Find("div." + section.class + " div.item").Each(func(_ int, s *goquery.Selection) {
			name := strings.TrimSpace(s.Text())
			if !media.KnownHoster(name) {
				return
			}
			servers[section.typ] = append(servers[section.typ], media.Server{
				ID:   s.AttrOr("data-id", ""),
				Name: name,
				Type: section.typ,
			})
		})
	}

	return servers
}
