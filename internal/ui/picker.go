package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/dsablic/devpulse/internal/model"
)

// ErrNoProjects is returned when there is nothing to pick from.
var ErrNoProjects = errors.New("no projects to choose from")

// ProjectOptions builds picker options labelled with path and health class.
func ProjectOptions(projects []model.ProjectSummary) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(projects))
	for _, p := range projects {
		name := p.PathWithNamespace
		if name == "" {
			name = p.Name
		}
		label := fmt.Sprintf("%s (%s)", name, p.Health.Category)
		opts = append(opts, huh.NewOption(label, p.ID))
	}
	return opts
}

// PickProject asks the user to choose one project and returns its ID.
func PickProject(projects []model.ProjectSummary) (int, error) {
	if len(projects) == 0 {
		return 0, ErrNoProjects
	}

	var id int
	err := huh.NewSelect[int]().
		Title("Select a project").
		Options(ProjectOptions(projects)...).
		Filtering(true).
		Value(&id).
		Run()
	if err != nil {
		return 0, fmt.Errorf("project picker: %w", err)
	}
	return id, nil
}

// PromptToken reads a token without echoing it.
func PromptToken(provider string) (string, error) {
	var token string
	err := huh.NewInput().
		Title(fmt.Sprintf("%s access token", provider)).
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("token is required")
			}
			return nil
		}).
		Value(&token).
		Run()
	if err != nil {
		return "", fmt.Errorf("token prompt: %w", err)
	}
	return token, nil
}
