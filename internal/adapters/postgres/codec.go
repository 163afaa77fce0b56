package postgres

import (
	"database/sql"
	"fmt"

	"github.com/espalierhq/espalier/pkg/flow"
)

// determinantToColumns flattens an optional determinant into its tagged
// column pair. A nil determinant (sequential fallback) keeps both columns
// NULL, preserving the authoring-layer distinction between "unset" and an
// explicit edge.
func determinantToColumns(d *flow.Determinant) (sql.NullString, sql.NullInt64) {
	if d == nil {
		return sql.NullString{}, sql.NullInt64{}
	}
	kind := sql.NullString{String: string(d.Kind()), Valid: true}
	if target, ok := d.Target(); ok {
		return kind, sql.NullInt64{Int64: target, Valid: true}
	}
	return kind, sql.NullInt64{}
}

// determinantFromColumns rebuilds the optional determinant, funnelling
// non-NULL pairs through the validating constructors.
func determinantFromColumns(kind sql.NullString, target sql.NullInt64) (*flow.Determinant, error) {
	if !kind.Valid {
		if target.Valid {
			return nil, fmt.Errorf("next_target %d without next_kind", target.Int64)
		}
		return nil, nil
	}
	d, err := flow.FromParts(flow.DeterminantKind(kind.String), target.Int64)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
