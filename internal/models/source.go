// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Profile holds the scalar profile fields supplied by a project data
// provider for a single account.
type Profile struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	Location    string `json:"location"`
	Company     string `json:"company"`
	Blog        string `json:"blog"`
	ProfileURL  string `json:"profile_url"`
	Followers   int    `json:"followers"`
	PublicRepos int    `json:"public_repos"`
}

// Repository is a repository-like record as returned by a provider.
type Repository struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Homepage    string   `json:"homepage"`
	Language    string   `json:"language"`
	Stars       int      `json:"stars"`
	Forks       int      `json:"forks"`
	Topics      []string `json:"topics"`
	Fork        bool     `json:"fork"`
	Archived    bool     `json:"archived"`
}

// SourceData is everything a provider returns for one account. Repositories
// are in provider order.
type SourceData struct {
	Profile      Profile      `json:"profile"`
	Repositories []Repository `json:"repositories"`
}
