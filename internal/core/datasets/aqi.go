package datasets

import "github.com/JonMunkholm/dataclean/internal/core"

func init() {
	core.Register(core.DatasetDefinition{
		Key:      "aqi",
		Label:    "Air Quality Index",
		FileName: "aqi.csv",
	})
}
