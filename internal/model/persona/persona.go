package persona

// Persona captures the contact the user is texting with. Description is the
// personality the model role-plays; ImageURL may be a URL or a data URI.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Online      bool   `json:"online"`
}

// Initial returns the first letter of the name for avatar fallbacks.
func (p Persona) Initial() string {
	for _, r := range p.Name {
		return string(r)
	}
	return ""
}

// Seed provides the default contact shown on a fresh start.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "alex",
			Name:        "Alex",
			Description: "friendly, casual, and sometimes witty",
			Online:      true,
		},
	}
}
