package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/normalize"
)

const githubBaseURL = "https://api.github.com/search/repositories"

// GitHubQuery pairs a repository search query with the source label stored on
// the resulting articles.
type GitHubQuery struct {
	Query string
	Label string
}

// GitHubQueries cover AI models and tools usable in or for games. The label
// is what readers see as the article source, not just "GitHub".
var GitHubQueries = []GitHubQuery{
	// Generative media
	{"topic:text-to-3d", "GitHub · Text-to-3D"},
	{"text to mesh 3D generation diffusion", "GitHub · Text-to-3D"},
	{"topic:text-to-image", "GitHub · Text-to-Image"},
	{"video generation world model diffusion", "GitHub · Video / World Models"},
	{"world model game simulation neural", "GitHub · World Models"},
	{"audio generation speech synthesis game", "GitHub · Audio AI"},

	// AI in games and NPCs
	{"topic:game-ai", "GitHub · Game AI"},
	{"AI NPC agent game language model", "GitHub · Game Agents"},
	{"reinforcement learning game environment", "GitHub · RL in Games"},
	{"procedural generation game neural", "GitHub · Proc-Gen"},

	// Tooling and engines
	{"NVIDIA DLSS upscaling real-time AI", "GitHub · NVIDIA / AMD"},
	{"AI game engine tools unity unreal", "GitHub · Game Engines"},
}

// GitHubSource searches GitHub repositories for each configured query, top 10
// by stars, deduplicating results across queries within a run.
type GitHubSource struct {
	baseURL string
	token   string
	queries []GitHubQuery
	client  *http.Client
}

// NewGitHubSource creates the repository-search adapter. An empty token means
// unauthenticated requests, which GitHub rate-limits aggressively.
func NewGitHubSource(token string) *GitHubSource {
	return &GitHubSource{
		baseURL: githubBaseURL,
		token:   token,
		queries: GitHubQueries,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

func (s *GitHubSource) Name() string { return "github" }

type repoSearchResponse struct {
	Items []struct {
		FullName        string   `json:"full_name"`
		HTMLURL         string   `json:"html_url"`
		StargazersCount int      `json:"stargazers_count"`
		Topics          []string `json:"topics"`
		Description     string   `json:"description"`
		PushedAt        string   `json:"pushed_at"`
		CreatedAt       string   `json:"created_at"`
	} `json:"items"`
}

// Fetch runs every configured query. A 403 aborts the remaining queries for
// this cycle: a blocked token or exhausted quota will not recover mid-run, so
// retrying the rest is pointless. Other failures skip only their own query.
func (s *GitHubSource) Fetch(ctx context.Context) []Candidate {
	var candidates []Candidate
	seen := make(map[string]bool)

	for _, q := range s.queries {
		repos, fatal := s.search(ctx, q, seen)
		candidates = append(candidates, repos...)
		if fatal {
			break
		}
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("queries", len(s.queries)).
		Msg("Processed GitHub queries")
	return candidates
}

// search executes one repository search. The returned flag is true when the
// remaining queries in this run should be abandoned.
func (s *GitHubSource) search(ctx context.Context, q GitHubQuery, seen map[string]bool) ([]Candidate, bool) {
	apiURL := fmt.Sprintf("%s?q=%s&sort=stars&order=desc&per_page=10",
		s.baseURL, url.QueryEscape(q.Query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		log.Error().Err(err).Str("query", q.Query).Msg("Failed to build GitHub request")
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("query", q.Query).Msg("Error fetching GitHub query")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(strings.ToLower(string(body)), "rate limit") {
			log.Warn().Msg("GitHub rate limit hit; set GITHUB_TOKEN to increase quota")
		} else {
			log.Warn().Str("query", q.Query).Msg("GitHub access denied; set GITHUB_TOKEN")
		}
		return nil, true
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("query", q.Query).Msg("GitHub query failed")
		return nil, false
	}

	var data repoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Error().Err(err).Str("query", q.Query).Msg("Failed to decode GitHub response")
		return nil, false
	}

	var candidates []Candidate
	for _, repo := range data.Items {
		if repo.HTMLURL == "" || seen[repo.HTMLURL] {
			continue
		}
		seen[repo.HTMLURL] = true

		var parts []string
		if repo.Description != "" {
			parts = append(parts, repo.Description)
		}
		if len(repo.Topics) > 0 {
			topics := repo.Topics
			if len(topics) > 6 {
				topics = topics[:6]
			}
			parts = append(parts, "Topics: "+strings.Join(topics, ", "))
		}
		parts = append(parts, fmt.Sprintf("★ %s stars", groupDigits(repo.StargazersCount)))

		candidates = append(candidates, Candidate{
			Title:     repo.FullName,
			URL:       repo.HTMLURL,
			Source:    q.Label,
			Category:  "GitHub",
			Summary:   normalize.Truncate(strings.Join(parts, " | ")),
			Published: parseRFC3339(repo.PushedAt, repo.CreatedAt),
		})
	}
	return candidates, false
}

// parseRFC3339 returns the first value that parses, or nil.
func parseRFC3339(values ...string) *time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

// groupDigits formats n with thousands separators, e.g. 12345 -> "12,345".
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
