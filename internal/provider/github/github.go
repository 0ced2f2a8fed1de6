// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package github fetches profile and repository data from the GitHub
// REST API. A fetch is all-or-nothing: any transport error, timeout or
// non-2xx response fails it and no partial data is returned.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"devfolio/internal/models"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds the whole fetch.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody limits how much of an error response is quoted.
	maxErrorBody = 512
)

// Client implements the project data provider against GitHub.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a GitHub client. token may be empty for unauthenticated
// (rate-limited) access.
func New(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type githubUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	Location    string `json:"location"`
	Company     string `json:"company"`
	Blog        string `json:"blog"`
	HTMLURL     string `json:"html_url"`
	Followers   int    `json:"followers"`
	PublicRepos int    `json:"public_repos"`
}

type githubRepo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	HTMLURL     string   `json:"html_url"`
	Homepage    string   `json:"homepage"`
	Language    string   `json:"language"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Topics      []string `json:"topics"`
	Fork        bool     `json:"fork"`
	Archived    bool     `json:"archived"`
}

// Fetch returns the profile and the most recently pushed repositories of
// login.
func (c *Client) Fetch(ctx context.Context, login string) (*models.SourceData, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, fmt.Errorf("github: empty login")
	}

	var user githubUser
	if err := c.get(ctx, "/users/"+url.PathEscape(login), nil, &user); err != nil {
		return nil, err
	}

	var repos []githubRepo
	q := url.Values{"per_page": {"100"}, "sort": {"pushed"}}
	if err := c.get(ctx, "/users/"+url.PathEscape(login)+"/repos", q, &repos); err != nil {
		return nil, err
	}

	data := &models.SourceData{
		Profile: models.Profile{
			Login:       user.Login,
			Name:        user.Name,
			Bio:         user.Bio,
			AvatarURL:   user.AvatarURL,
			Location:    user.Location,
			Company:     user.Company,
			Blog:        user.Blog,
			ProfileURL:  user.HTMLURL,
			Followers:   user.Followers,
			PublicRepos: user.PublicRepos,
		},
		Repositories: make([]models.Repository, 0, len(repos)),
	}
	for _, r := range repos {
		data.Repositories = append(data.Repositories, models.Repository{
			Name:        r.Name,
			Description: r.Description,
			URL:         r.HTMLURL,
			Homepage:    r.Homepage,
			Language:    r.Language,
			Stars:       r.Stars,
			Forks:       r.Forks,
			Topics:      r.Topics,
			Fork:        r.Fork,
			Archived:    r.Archived,
		})
	}
	return data, nil
}

// get performs a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "devfolio")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github decode %s: %w", path, err)
	}
	return nil
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github API error on %s (status %d): %s", e.Path, e.StatusCode, e.Body)
}
