package entities

// UserProfile carries the dietary context forwarded to recipe generation.
// All fields are optional; an empty profile is valid.
type UserProfile struct {
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	SkillLevel         string   `json:"skill_level,omitempty"`
	HouseholdSize      int      `json:"household_size,omitempty"`
	PreferredCuisines  []string `json:"preferred_cuisines,omitempty"`
}
