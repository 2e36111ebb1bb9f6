package datasets

import "github.com/JonMunkholm/dataclean/internal/core"

func init() {
	core.Register(core.DatasetDefinition{
		Key:      "population_projection",
		Label:    "Population Projection",
		FileName: "population_projection.csv",
	})
}
