package models

import (
	"strings"
	"time"
)

type Kind string

const (
	KindRock    Kind = "rock"
	KindMineral Kind = "mineral"
)

// ParseKind accepts singular and plural spellings ("rocks", "Mineral").
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock", "rocks":
		return KindRock, true
	case "mineral", "minerals":
		return KindMineral, true
	default:
		return "", false
	}
}

// Plural is used for table names and navigation paths.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Specimen is a single rock or mineral catalog record as the store returns it.
//
// Code is entered by hand and may be empty, or duplicated across records with
// different spacing/case. Every descriptive attribute is optional.
type Specimen struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Code     string `json:"code,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Type     string `json:"type,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	Attributes

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Attributes holds the descriptive fields; stored as one JSON column.
type Attributes struct {
	Color                   string `json:"color,omitempty"`
	Hardness                string `json:"hardness,omitempty"`
	Texture                 string `json:"texture,omitempty"`
	GrainSize               string `json:"grain_size,omitempty"`
	Locality                string `json:"locality,omitempty"`
	MineralComposition      string `json:"mineral_composition,omitempty"`
	Description             string `json:"description,omitempty"`
	Formation               string `json:"formation,omitempty"`
	DepositionalEnvironment string `json:"depositional_environment,omitempty"`
	AssociatedMinerals      string `json:"associated_minerals,omitempty"`
	Coordinates             string `json:"coordinates,omitempty"`
	Latitude                string `json:"latitude,omitempty"`
	Longitude               string `json:"longitude,omitempty"`

	// rock specific
	Foliation        string `json:"foliation,omitempty"`
	MetamorphicGrade string `json:"metamorphic_grade,omitempty"`
	SilicaContent    string `json:"silica_content,omitempty"`
	Bedding          string `json:"bedding,omitempty"`
	CommodityType    string `json:"commodity_type,omitempty"`
	OreGroup         string `json:"ore_group,omitempty"`
	ReactionToHCl    string `json:"reaction_to_hcl,omitempty"`

	// mineral specific
	Luster          string `json:"luster,omitempty"`
	Streak          string `json:"streak,omitempty"`
	Cleavage        string `json:"cleavage,omitempty"`
	Fracture        string `json:"fracture,omitempty"`
	CrystalSystem   string `json:"crystal_system,omitempty"`
	ChemicalFormula string `json:"chemical_formula,omitempty"`
	MineralGroup    string `json:"mineral_group,omitempty"`
	SpecificGravity string `json:"specific_gravity,omitempty"`
	Occurrence      string `json:"occurrence,omitempty"`
	Magnetism       string `json:"magnetism,omitempty"`
}

// FieldNames lists every named field reachable through Field, in a fixed order.
var FieldNames = []string{
	"code", "name", "category", "type", "image_url",
	"color", "hardness", "texture", "grain_size", "locality",
	"mineral_composition", "description", "formation", "depositional_environment",
	"associated_minerals", "coordinates", "latitude", "longitude",
	"foliation", "metamorphic_grade", "silica_content", "bedding",
	"commodity_type", "ore_group", "reaction_to_hcl",
	"luster", "streak", "cleavage", "fracture", "crystal_system",
	"chemical_formula", "mineral_group", "specific_gravity", "occurrence", "magnetism",
}

// Field returns the value of a field by its JSON name, or "" for unknown names.
func (s *Specimen) Field(name string) string {
	switch name {
	case "id":
		return s.ID
	case "code":
		return s.Code
	case "name":
		return s.Name
	case "category":
		return s.Category
	case "type":
		return s.Type
	case "image_url":
		return s.ImageURL
	case "color":
		return s.Color
	case "hardness":
		return s.Hardness
	case "texture":
		return s.Texture
	case "grain_size":
		return s.GrainSize
	case "locality":
		return s.Locality
	case "mineral_composition":
		return s.MineralComposition
	case "description":
		return s.Description
	case "formation":
		return s.Formation
	case "depositional_environment":
		return s.DepositionalEnvironment
	case "associated_minerals":
		return s.AssociatedMinerals
	case "coordinates":
		return s.Coordinates
	case "latitude":
		return s.Latitude
	case "longitude":
		return s.Longitude
	case "foliation":
		return s.Foliation
	case "metamorphic_grade":
		return s.MetamorphicGrade
	case "silica_content":
		return s.SilicaContent
	case "bedding":
		return s.Bedding
	case "commodity_type":
		return s.CommodityType
	case "ore_group":
		return s.OreGroup
	case "reaction_to_hcl":
		return s.ReactionToHCl
	case "luster":
		return s.Luster
	case "streak":
		return s.Streak
	case "cleavage":
		return s.Cleavage
	case "fracture":
		return s.Fracture
	case "crystal_system":
		return s.CrystalSystem
	case "chemical_formula":
		return s.ChemicalFormula
	case "mineral_group":
		return s.MineralGroup
	case "specific_gravity":
		return s.SpecificGravity
	case "occurrence":
		return s.Occurrence
	case "magnetism":
		return s.Magnetism
	default:
		return ""
	}
}

// SetField is the write side of Field. It reports false for unknown names.
func (s *Specimen) SetField(name, value string) bool {
	switch name {
	case "id":
		s.ID = value
	case "code":
		s.Code = value
	case "name":
		s.Name = value
	case "category":
		s.Category = value
	case "type":
		s.Type = value
	case "image_url":
		s.ImageURL = value
	case "color":
		s.Color = value
	case "hardness":
		s.Hardness = value
	case "texture":
		s.Texture = value
	case "grain_size":
		s.GrainSize = value
	case "locality":
		s.Locality = value
	case "mineral_composition":
		s.MineralComposition = value
	case "description":
		s.Description = value
	case "formation":
		s.Formation = value
	case "depositional_environment":
		s.DepositionalEnvironment = value
	case "associated_minerals":
		s.AssociatedMinerals = value
	case "coordinates":
		s.Coordinates = value
	case "latitude":
		s.Latitude = value
	case "longitude":
		s.Longitude = value
	case "foliation":
		s.Foliation = value
	case "metamorphic_grade":
		s.MetamorphicGrade = value
	case "silica_content":
		s.SilicaContent = value
	case "bedding":
		s.Bedding = value
	case "commodity_type":
		s.CommodityType = value
	case "ore_group":
		s.OreGroup = value
	case "reaction_to_hcl":
		s.ReactionToHCl = value
	case "luster":
		s.Luster = value
	case "streak":
		s.Streak = value
	case "cleavage":
		s.Cleavage = value
	case "fracture":
		s.Fracture = value
	case "crystal_system":
		s.CrystalSystem = value
	case "chemical_formula":
		s.ChemicalFormula = value
	case "mineral_group":
		s.MineralGroup = value
	case "specific_gravity":
		s.SpecificGravity = value
	case "occurrence":
		s.Occurrence = value
	case "magnetism":
		s.Magnetism = value
	default:
		return false
	}
	return true
}

// Completeness counts non-blank fields; used as a tie-break between duplicates.
func (s *Specimen) Completeness() int {
	n := 0
	for _, name := range FieldNames {
		if strings.TrimSpace(s.Field(name)) != "" {
			n++
		}
	}
	return n
}

// Image is one gallery entry attached to a specimen.
type Image struct {
	ID         string    `json:"id"`
	SpecimenID string    `json:"specimen_id"`
	URL        string    `json:"url"`
	Caption    string    `json:"caption,omitempty"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// Pagination describes one page of a larger result.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives TotalPages from total and pageSize.
func NewPagination(page, pageSize, total int) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
	}
	return p
}
