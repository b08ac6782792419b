package types

// Territory locates a directory member or message within the
// organizational geography. Region and Department are fixed for a
// deployment; Municipality and Locality narrow as the hierarchy
// descends. Empty fields mean "not assigned", which is a normal state
// for org-wide roles.
type Territory struct {
	Region       string `json:"region,omitempty"`
	Department   string `json:"department,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Locality     string `json:"locality,omitempty"`
}

// HasMunicipality reports whether a municipality is assigned.
func (t Territory) HasMunicipality() bool {
	return t.Municipality != ""
}

// SameMunicipality reports whether both territories name the same,
// non-empty municipality.
func (t Territory) SameMunicipality(other Territory) bool {
	return t.Municipality != "" && t.Municipality == other.Municipality
}
