package domain

// Category clasifica una ubicacion del catalogo.
type Category string

const (
	CategoryAll           Category = "All"
	CategoryRestaurant    Category = "Restaurant"
	CategoryHiking        Category = "Hiking"
	CategoryGames         Category = "Games"
	CategoryMuseum        Category = "Museum"
	CategorySports        Category = "Sports"
	CategoryShopping      Category = "Shopping"
	CategoryPark          Category = "Park"
	CategoryEntertainment Category = "Entertainment"
)

// Categories enumera las categorias fijas, sin incluir All.
func Categories() []Category {
	return []Category{
		CategoryRestaurant,
		CategoryHiking,
		CategoryGames,
		CategoryMuseum,
		CategorySports,
		CategoryShopping,
		CategoryPark,
		CategoryEntertainment,
	}
}

// Region agrupa barrios en zonas fijas de la ciudad.
type Region string

const (
	RegionAll         Region = "All"
	RegionDowntown    Region = "Downtown"
	RegionStripLawr   Region = "Strip District / Lawrenceville"
	RegionNorthSide   Region = "North Side / North Shore"
	RegionEastEnd     Region = "East End"
	RegionSouth       Region = "South Side / South Hills"
	RegionNorthHills  Region = "North Hills / North"
	RegionWestAirport Region = "West / Airport"
)

// Regions enumera las regiones fijas, sin incluir All.
func Regions() []Region {
	return []Region{
		RegionDowntown,
		RegionStripLawr,
		RegionNorthSide,
		RegionEastEnd,
		RegionSouth,
		RegionNorthHills,
		RegionWestAirport,
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location es una entrada inmutable del catalogo estatico.
type Location struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Category     Category    `json:"category"`
	Region       Region      `json:"region"`
	Neighborhood string      `json:"neighborhood,omitempty"`
	Coordinates  Coordinates `json:"coordinates"`
	Description  string      `json:"description,omitempty"`
	Website      string      `json:"website,omitempty"`
}
