package ports

import (
	"context"

	"github.com/espalierhq/espalier/pkg/flow"
)

// SurveyStore defines the interface for loading and persisting survey
// definitions. Both the activation path and the delivery path construct the
// same flow.Survey graph through it, regardless of backend.
type SurveyStore interface {
	// Survey retrieves the current definition, including its Version tag
	// and Validated flag.
	// Returns flow.ErrSurveyNotFound if the survey does not exist.
	Survey(ctx context.Context, id int64) (*flow.Survey, error)

	// SaveSurvey persists the definition. Saving an existing survey
	// replaces it under a new version and clears the validated flag.
	SaveSurvey(ctx context.Context, s *flow.Survey) error

	// Activate persists the validated flag for the given version. Callers
	// run flow.Activate first; the store only records the outcome.
	// Returns flow.ErrSurveyNotFound if the survey does not exist.
	Activate(ctx context.Context, id int64, version string) error
}

// ResponseStore defines the interface for persisting per-respondent walk
// state. This is the "external distributed cache" shape the core is designed
// against: implementations are not assumed to provide in-process mutual
// exclusion, which is why the flow core's own guard checks stay the
// correctness mechanism.
type ResponseStore interface {
	// Save persists the response under its ID.
	Save(ctx context.Context, responseID string, r *flow.Response) error

	// Load retrieves the response.
	// Returns flow.ErrResponseNotFound if it does not exist.
	Load(ctx context.Context, responseID string) (*flow.Response, error)

	// Delete removes the response.
	Delete(ctx context.Context, responseID string) error

	// List returns the IDs of stored responses.
	List(ctx context.Context) ([]string, error)
}
