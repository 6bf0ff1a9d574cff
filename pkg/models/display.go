package models

// DisplayItem is the uniform shape the catalog hands to presentation code.
// It is derived per query and never persisted.
type DisplayItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Path        string `json:"path,omitempty"`
	Category    string `json:"category,omitempty"`
	Kind        Kind   `json:"kind"`
	Code        string `json:"code,omitempty"`

	Color       string `json:"color,omitempty"`
	Locality    string `json:"locality,omitempty"`
	Coordinates string `json:"coordinates,omitempty"`
	Latitude    string `json:"latitude,omitempty"`
	Longitude   string `json:"longitude,omitempty"`

	// rocks only
	Texture   string `json:"texture,omitempty"`
	Foliation string `json:"foliation,omitempty"`
	RockType  string `json:"rock_type,omitempty"`
}
