package datasets

import "github.com/JonMunkholm/dataclean/internal/core"

func init() {
	core.Register(core.DatasetDefinition{
		Key:      "vahan",
		Label:    "VAHAN Vehicle Registrations",
		FileName: "vahan.csv",
	})
}
