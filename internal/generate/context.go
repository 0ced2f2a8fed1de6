// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"log/slog"
	"strings"
	"time"

	"devfolio/internal/engine"
	"devfolio/internal/markdown"
	"devfolio/internal/models"
)

// Selection picks which provider data ends up in the portfolio.
type Selection struct {
	Account string
	// Repositories names repositories to show, in display order. Empty
	// means every repository in provider order.
	Repositories []string
	// IncludeForks keeps forks when Repositories is empty. Named forks
	// are always kept.
	IncludeForks bool
	// Limit caps the project count when positive.
	Limit int
	// Title overrides the page title. Defaults to the display name.
	Title string
	// Refresh drops cached provider data before fetching.
	Refresh bool
}

// Root field names filled by BuildContext.
const (
	FieldName         = "NAME"
	FieldLogin        = "LOGIN"
	FieldBio          = "BIO"
	FieldBioHTML      = "BIO_HTML"
	FieldAvatarURL    = "AVATAR_URL"
	FieldLocation     = "LOCATION"
	FieldCompany      = "COMPANY"
	FieldBlog         = "BLOG"
	FieldProfileURL   = "PROFILE_URL"
	FieldFollowers    = "FOLLOWERS"
	FieldPublicRepos  = "PUBLIC_REPOS"
	FieldProjectCount = "PROJECT_COUNT"
	FieldHasProjects  = "HAS_PROJECTS"
	FieldTotalStars   = "TOTAL_STARS"
	FieldYear         = "YEAR"
	FieldGeneratedAt  = "GENERATED_AT"
	FieldTitle        = "TITLE"
)

// BuildContext turns provider data and a selection into a render context.
// It is deterministic for a given now.
func BuildContext(data *models.SourceData, sel Selection, now time.Time) engine.RenderContext {
	p := data.Profile
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.Login
	}
	title := strings.TrimSpace(sel.Title)
	if title == "" {
		title = name
	}

	repos := selectRepositories(data.Repositories, sel)
	projects := make([]engine.ProjectEntry, len(repos))
	totalStars := 0
	for i, r := range repos {
		projects[i] = projectEntry(i+1, r)
		totalStars += r.Stars
	}

	return engine.RenderContext{
		Fields: engine.Fields{
			FieldName:         name,
			FieldLogin:        p.Login,
			FieldBio:          p.Bio,
			FieldBioHTML:      toHTML(p.Bio),
			FieldAvatarURL:    p.AvatarURL,
			FieldLocation:     p.Location,
			FieldCompany:      p.Company,
			FieldBlog:         p.Blog,
			FieldProfileURL:   p.ProfileURL,
			FieldFollowers:    p.Followers,
			FieldPublicRepos:  p.PublicRepos,
			FieldProjectCount: len(projects),
			FieldHasProjects:  len(projects) > 0,
			FieldTotalStars:   totalStars,
			FieldYear:         now.Year(),
			FieldGeneratedAt:  now.UTC().Format("2006-01-02"),
			FieldTitle:        title,
		},
		Projects: projects,
	}
}

// selectRepositories applies the selection. Named repositories come back
// in the requested order; unknown names are skipped.
func selectRepositories(all []models.Repository, sel Selection) []models.Repository {
	var out []models.Repository
	if len(sel.Repositories) > 0 {
		byName := make(map[string]models.Repository, len(all))
		for _, r := range all {
			byName[strings.ToLower(r.Name)] = r
		}
		seen := make(map[string]bool, len(sel.Repositories))
		for _, name := range sel.Repositories {
			key := strings.ToLower(strings.TrimSpace(name))
			if seen[key] {
				continue
			}
			seen[key] = true
			r, ok := byName[key]
			if !ok {
				slog.Debug("selected repository not found", "account", sel.Account, "repository", name)
				continue
			}
			out = append(out, r)
		}
	} else {
		for _, r := range all {
			if r.Fork && !sel.IncludeForks {
				continue
			}
			out = append(out, r)
		}
	}

	if sel.Limit > 0 && len(out) > sel.Limit {
		out = out[:sel.Limit]
	}
	return out
}

func projectEntry(index int, r models.Repository) engine.ProjectEntry {
	var demo *string
	if h := strings.TrimSpace(r.Homepage); h != "" {
		demo = &h
	}
	return engine.ProjectEntry{
		Index:           index,
		Name:            r.Name,
		Description:     r.Description,
		DescriptionHTML: toHTML(r.Description),
		URL:             r.URL,
		DemoURL:         demo,
		Language:        r.Language,
		Stars:           r.Stars,
		Forks:           r.Forks,
		Tags:            dedupeTags(r.Topics),
	}
}

// dedupeTags keeps the first occurrence of each tag, ignoring case and
// blank entries.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// toHTML renders provider Markdown. A conversion failure degrades to an
// empty field rather than failing the generation.
func toHTML(src string) engine.HTML {
	out, err := markdown.ToHTML(src)
	if err != nil {
		slog.Warn("markdown conversion failed", "error", err)
		return ""
	}
	return engine.HTML(out)
}

// SampleData is the profile used for template previews when no account
// is given.
func SampleData() *models.SourceData {
	return &models.SourceData{
		Profile: models.Profile{
			Login:       "octocat",
			Name:        "The Octocat",
			Bio:         "Ships *small* tools and writes about them.",
			AvatarURL:   "https://avatars.githubusercontent.com/u/583231",
			Location:    "San Francisco",
			Company:     "@github",
			Blog:        "https://github.blog",
			ProfileURL:  "https://github.com/octocat",
			Followers:   1200,
			PublicRepos: 8,
		},
		Repositories: []models.Repository{
			{
				Name:        "hello-world",
				Description: "My first repository",
				URL:         "https://github.com/octocat/hello-world",
				Language:    "Go",
				Stars:       2500,
				Forks:       300,
				Topics:      []string{"demo", "beginner"},
			},
			{
				Name:        "spoon-knife",
				Description: "Practice forking",
				URL:         "https://github.com/octocat/spoon-knife",
				Homepage:    "https://octocat.github.io/spoon-knife",
				Language:    "HTML",
				Stars:       12000,
				Forks:       140000,
				Topics:      []string{"forking"},
			},
		},
	}
}
