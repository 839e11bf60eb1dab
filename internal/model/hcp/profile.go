package hcp

// Profile captures the reference data a representative sees about an HCP.
type Profile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Specialty   string   `json:"specialty"`
	Institution string   `json:"institution"`
	Location    string   `json:"location"`
	Interests   []string `json:"interests,omitempty"`   // 关注的治疗领域
	Preferences string   `json:"preferences,omitempty"` // 沟通偏好
}

// Seed provides the demo directory loaded at start-up.
func Seed() []Profile {
	return []Profile{
		{
			ID:          "dr-lee",
			Name:        "Dr. Lee",
			Aliases:     []string{"Dr. Min-Jun Lee", "Min-Jun Lee"},
			Specialty:   "Cardiology",
			Institution: "City Hospital",
			Location:    "Downtown",
			Interests:   []string{"heart failure", "anticoagulation"},
			Preferences: "Prefers short in-person meetings before clinic hours.",
		},
		{
			ID:          "dr-patel",
			Name:        "Dr. Patel",
			Aliases:     []string{"Dr. Anika Patel", "Anika Patel"},
			Specialty:   "Endocrinology",
			Institution: "Riverside Medical Center",
			Location:    "Riverside",
			Interests:   []string{"type 2 diabetes", "obesity"},
			Preferences: "Responds best to email with published data attached.",
		},
		{
			ID:          "dr-garcia",
			Name:        "Dr. Garcia",
			Aliases:     []string{"Dr. Sofia Garcia", "Sofia Garcia"},
			Specialty:   "Oncology",
			Institution: "St. Mary's Cancer Institute",
			Location:    "Northside",
			Interests:   []string{"immunotherapy", "clinical trials"},
			Preferences: "Open to conference follow-ups and advisory boards.",
		},
	}
}
