// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

// HTML is trusted, pre-rendered markup written to the output without
// escaping. Plain strings are always HTML-escaped.
type HTML string

// Fields maps scalar field names to values. Supported values are string,
// HTML, bool, integer and float types, *string, and nil.
type Fields map[string]any

// ProjectEntry is one element of the PROJECTS loop.
type ProjectEntry struct {
	Index           int
	Name            string
	Description     string
	DescriptionHTML HTML
	URL             string
	DemoURL         *string
	Language        string
	Stars           int
	Forks           int
	Tags            []string
}

// RenderContext is the data a template is rendered against: flat scalar
// fields plus the ordered project list.
type RenderContext struct {
	Fields   Fields
	Projects []ProjectEntry
}

// Field names exposed inside a PROJECTS loop.
const (
	FieldProjectIndex           = "PROJECT_INDEX"
	FieldProjectName            = "PROJECT_NAME"
	FieldProjectDescription     = "PROJECT_DESCRIPTION"
	FieldProjectDescriptionHTML = "PROJECT_DESCRIPTION_HTML"
	FieldProjectURL             = "PROJECT_URL"
	FieldProjectDemoURL         = "PROJECT_DEMO_URL"
	FieldProjectLanguage        = "PROJECT_LANGUAGE"
	FieldProjectStars           = "PROJECT_STARS"
	FieldProjectForks           = "PROJECT_FORKS"
	FieldProjectTagCount        = "PROJECT_TAG_COUNT"
	FieldTag                    = "TAG"
	FieldTagIndex               = "TAG_INDEX"
)

// item is one iteration's variables. Lists are []item.
type item map[string]any

// scope is a chain of variable maps. Loop iterations push a child scope
// holding only that element's fields, so siblings never see each other.
type scope struct {
	vars   map[string]any
	parent *scope
}

func (s *scope) lookup(name string) (any, bool) {
	for c := s; c != nil; c = c.parent {
		if v, ok := c.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) child(vars map[string]any) *scope {
	return &scope{vars: vars, parent: s}
}

// rootScope builds the top-level scope for a render context.
func rootScope(rc RenderContext) *scope {
	base := &scope{vars: rc.Fields}

	projects := make([]item, len(rc.Projects))
	for i, p := range rc.Projects {
		projects[i] = projectItem(p)
	}
	return base.child(map[string]any{ListProjects: projects})
}

func projectItem(p ProjectEntry) item {
	tags := make([]item, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = item{FieldTag: t, FieldTagIndex: i + 1}
	}

	var demo any
	if p.DemoURL != nil {
		demo = *p.DemoURL
	}

	return item{
		FieldProjectIndex:           p.Index,
		FieldProjectName:            p.Name,
		FieldProjectDescription:     p.Description,
		FieldProjectDescriptionHTML: p.DescriptionHTML,
		FieldProjectURL:             p.URL,
		FieldProjectDemoURL:         demo,
		FieldProjectLanguage:        p.Language,
		FieldProjectStars:           p.Stars,
		FieldProjectForks:           p.Forks,
		FieldProjectTagCount:        len(p.Tags),
		ListTags:                    tags,
	}
}
