package pipeline

import (
	"slices"

	"demandlab/pkg/dataprep"
)

// Schema describes the design matrix a run was scored on.
type Schema struct {
	Target  string   `json:"target"`
	Columns []string `json:"columns"`
	HasBias bool     `json:"has_bias"`
	Rows    int      `json:"rows"`
}

func schemaOf(dm *dataprep.DesignMatrix) Schema {
	return Schema{
		Target:  dm.Target,
		Columns: slices.Clone(dm.Columns),
		HasBias: dm.HasBias,
		Rows:    dm.X.R,
	}
}

// Features returns the column names without the bias column.
func (s Schema) Features() []string {
	if s.HasBias && len(s.Columns) > 0 {
		return s.Columns[1:]
	}
	return s.Columns
}
