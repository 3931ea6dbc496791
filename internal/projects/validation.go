package projects

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	goslug "github.com/goliatone/go-slug"
)

// ErrProjectRequired is returned when a nil project is validated.
var ErrProjectRequired = errors.New("projects: project is required")

// Validate checks the project fields callers persist. Rendering does not
// require a valid project.
func Validate(project *Project) error {
	if project == nil {
		return ErrProjectRequired
	}
	err := validation.ValidateStruct(project,
		validation.Field(&project.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&project.Slug, validation.Required, validation.Length(1, 255), validation.By(func(value any) error {
			slug, _ := value.(string)
			if !goslug.IsValid(strings.TrimSpace(slug)) {
				return validation.NewError("renderly.projects.slug_invalid", "slug must be URL-safe")
			}
			return nil
		})),
		validation.Field(&project.Visibility, validation.In(VisibilityPrivate, VisibilityShared, VisibilityPublic)),
		validation.Field(&project.Status, validation.In(StatusDraft, StatusPublished)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "project is invalid").
			WithTextCode("PROJECT_INVALID")
	}
	return nil
}
