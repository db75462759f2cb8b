package sources

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/normalize"
)

const (
	arxivBaseURL         = "https://export.arxiv.org/api/query"
	arxivResultsPerQuery = 8
	arxivMaxAuthors      = 3
)

// versionSuffixRe matches the trailing version marker of an arXiv identifier
// (e.g. "v2"). Stripping it collapses revisions of a paper to one record.
var versionSuffixRe = regexp.MustCompile(`v\d+$`)

// ArxivQuery pairs an arXiv API search expression with the source label
// stored on the resulting articles.
type ArxivQuery struct {
	Query string
	Label string
}

// ArxivQueries cover recent papers on generative media and AI in games.
var ArxivQueries = []ArxivQuery{
	// Generative media
	{`ti:"text to 3D" OR ti:"3D generation" OR ti:"text-to-3D" OR ti:"3D gaussian"`,
		"arXiv · Text-to-3D"},
	{`ti:"neural rendering" OR ti:"NeRF" OR ti:"gaussian splatting"`,
		"arXiv · Neural Rendering"},
	{`ti:"video generation" OR ti:"video synthesis" OR ti:"world model"`,
		"arXiv · Video / World Models"},
	{`ti:"text to image" OR ti:"image generation" OR ti:"diffusion model"`,
		"arXiv · Text-to-Image"},
	{`ti:"audio generation" OR ti:"music generation" OR ti:"sound synthesis"`,
		"arXiv · Audio AI"},

	// AI in games
	{`ti:"game" AND (ti:"reinforcement learning" OR ti:"agent" OR ti:"policy")`,
		"arXiv · RL / Game Agents"},
	{`ti:"procedural generation" OR ti:"game AI" OR ti:"NPC" OR ti:"game environment"`,
		"arXiv · Game AI"},
	{`ti:"game" AND (ti:"large language model" OR ti:"LLM" OR ti:"generative")`,
		"arXiv · LLMs in Games"},
}

// ArxivSource queries the arXiv export API for recent papers, newest
// submissions first, deduplicating canonicalized paper URLs across queries.
type ArxivSource struct {
	baseURL string
	queries []ArxivQuery
	client  *http.Client
}

// NewArxivSource creates the paper-search adapter.
func NewArxivSource() *ArxivSource {
	return &ArxivSource{
		baseURL: arxivBaseURL,
		queries: ArxivQueries,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

func (s *ArxivSource) Name() string { return "arxiv" }

// Fetch runs every configured query; a failing query is skipped, the rest
// still run.
func (s *ArxivSource) Fetch(ctx context.Context) []Candidate {
	var candidates []Candidate
	seen := make(map[string]bool)

	for _, q := range s.queries {
		papers, err := s.search(ctx, q, seen)
		if err != nil {
			log.Error().Err(err).Str("label", q.Label).Msg("Error fetching arXiv query")
			continue
		}
		candidates = append(candidates, papers...)
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("queries", len(s.queries)).
		Msg("Processed arXiv queries")
	return candidates
}

func (s *ArxivSource) search(ctx context.Context, q ArxivQuery, seen map[string]bool) ([]Candidate, error) {
	params := url.Values{
		"search_query": {q.Query},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
		"max_results":  {strconv.Itoa(arxivResultsPerQuery)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, item := range feed.Items {
		// The entry ID is the canonical paper URL once the version suffix
		// is stripped; first seen wins regardless of revision recency.
		paperURL := versionSuffixRe.ReplaceAllString(strings.TrimSpace(item.GUID), "")
		if paperURL == "" || seen[paperURL] {
			continue
		}
		seen[paperURL] = true

		title := normalize.CleanHTML(strings.ReplaceAll(item.Title, "\n", " "))
		abstract := normalize.CleanHTML(item.Description)

		candidates = append(candidates, Candidate{
			Title:     title,
			URL:       paperURL,
			Source:    q.Label,
			Category:  "Research",
			Summary:   normalize.Truncate(authorSummary(item.Authors, abstract)),
			Published: normalize.ResolveTime(item.PublishedParsed, item.UpdatedParsed),
		})
	}
	return candidates, nil
}

// authorSummary prefixes the abstract with up to three author names, adding
// "et al." when more exist.
func authorSummary(authors []*gofeed.Person, abstract string) string {
	var names []string
	for _, a := range authors {
		if a == nil || a.Name == "" {
			continue
		}
		names = append(names, a.Name)
		if len(names) == arxivMaxAuthors {
			break
		}
	}
	if len(names) == 0 {
		return abstract
	}

	suffix := ""
	if len(authors) > arxivMaxAuthors {
		suffix = " et al."
	}
	return strings.Join(names, ", ") + suffix + " — " + abstract
}
