package main

import (
	"fmt"

	"github.com/librexlabs/librex/internal/dataset"
	"github.com/librexlabs/librex/internal/scenario"
)

// loadScenario reads a scenario spec plus its data files and joins the
// feature rows with the runtime table into instance records. Instances
// missing from the feature file get zero-width vectors only when the
// scenario carries no feature file at all; otherwise the join is strict.
func loadScenario(path string) (*scenario.Spec, *dataset.Table, []scenario.Instance, error) {
	spec, err := scenario.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}

	table, err := dataset.LoadTable(spec.RuntimeFile, spec.Solvers, spec.CutoffSec, spec.Penalty())
	if err != nil {
		return nil, nil, nil, err
	}

	var instances []scenario.Instance
	if spec.FeatureFile != "" {
		ids, vectors, err := dataset.LoadFeatures(spec.FeatureFile)
		if err != nil {
			return nil, nil, nil, err
		}
		byID := make(map[string][]float64, len(ids))
		for i, id := range ids {
			byID[id] = vectors[i]
		}
		for _, id := range table.InstanceIDs() {
			vec, ok := byID[id]
			if !ok {
				return nil, nil, nil, fmt.Errorf("instance %q has runtimes but no features", id)
			}
			instances = append(instances, scenario.Instance{ID: id, Features: vec})
		}
	} else {
		for _, id := range table.InstanceIDs() {
			instances = append(instances, scenario.Instance{ID: id})
		}
	}

	return spec, table, instances, nil
}
