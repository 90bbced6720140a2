package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"city-spots/assets"
	"city-spots/internal/domain"
)

// Catalog expone el catalogo estatico de ubicaciones. Se carga una sola
// vez al inicio y nunca se muta en runtime.
type Catalog struct {
	locations []domain.Location
	byID      map[string]domain.Location
}

// Load decodifica el catalogo embebido en assets.
func Load() (*Catalog, error) {
	data, err := assets.CatalogFS.ReadFile(assets.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}

// Parse construye un catalogo a partir de JSON crudo.
func Parse(data []byte) (*Catalog, error) {
	var locations []domain.Location
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	byID := make(map[string]domain.Location, len(locations))
	for _, loc := range locations {
		if loc.ID == "" {
			return nil, fmt.Errorf("catalog entry without id: %q", loc.Name)
		}
		if _, dup := byID[loc.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id: %s", loc.ID)
		}
		byID[loc.ID] = loc
	}
	return &Catalog{locations: locations, byID: byID}, nil
}

// All devuelve todas las ubicaciones en el orden del catalogo.
func (c *Catalog) All() []domain.Location {
	out := make([]domain.Location, len(c.locations))
	copy(out, c.locations)
	return out
}

// ByID busca una ubicacion por id.
func (c *Catalog) ByID(id string) (domain.Location, bool) {
	loc, ok := c.byID[id]
	return loc, ok
}

// Filter devuelve las ubicaciones que cumplen ambos selectores.
// All en cualquiera de los dos acepta todo.
func (c *Catalog) Filter(category domain.Category, region domain.Region) []domain.Location {
	var out []domain.Location
	for _, loc := range c.locations {
		if category != domain.CategoryAll && category != "" && loc.Category != category {
			continue
		}
		if region != domain.RegionAll && region != "" && loc.Region != region {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Regions devuelve las regiones presentes en el catalogo, ordenadas.
func (c *Catalog) Regions() []domain.Region {
	seen := make(map[domain.Region]bool)
	for _, loc := range c.locations {
		seen[loc.Region] = true
	}
	out := make([]domain.Region, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Categories devuelve las categorias presentes en el catalogo, ordenadas.
func (c *Catalog) Categories() []domain.Category {
	seen := make(map[domain.Category]bool)
	for _, loc := range c.locations {
		seen[loc.Category] = true
	}
	out := make([]domain.Category, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len devuelve el total de ubicaciones.
func (c *Catalog) Len() int {
	return len(c.locations)
}
