package client

import (
	"context"
	"net/http"
	"net/url"
)

// Project is a project listing as served by the API.
type Project struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Location       string   `json:"location"`
	Budget         string   `json:"budget"`
	RequiredSkills []string `json:"requiredSkills"`
	CreatorID      string   `json:"creatorId"`
	CreatorName    string   `json:"creatorName"`
	Status         string   `json:"status"`
	Featured       bool     `json:"featured"`
	CreatedAt      string   `json:"createdAt"`
}

// BrowseProjects returns approved listings, optionally filtered by
// category and free-text query.
func (c *Client) BrowseProjects(ctx context.Context, category, query string) ([]Project, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	if query != "" {
		params.Set("q", query)
	}
	path := "/api/projects"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// SubmitProject creates a listing for the authenticated user.
func (c *Client) SubmitProject(ctx context.Context, input Project) (*Project, error) {
	var out struct {
		Project Project `json:"project"`
	}
	err := c.do(ctx, http.MethodPost, "/api/projects", map[string]any{
		"title":          input.Title,
		"description":    input.Description,
		"category":       input.Category,
		"location":       input.Location,
		"budget":         input.Budget,
		"requiredSkills": input.RequiredSkills,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Project, nil
}
