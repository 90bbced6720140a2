package assets

import "embed"

//go:embed locations.json
var CatalogFS embed.FS

const CatalogFile = "locations.json"
