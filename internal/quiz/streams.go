package quiz

// Stream describes an academic stream suggested for a dominant trait.
type Stream struct {
	Name     string   `json:"stream"`
	Subjects []string `json:"subjects"`
	Careers  []string `json:"careers"`
}

// Streams maps a trait to its precomputed stream suggestion.
var Streams = map[string]Stream{
	TraitScience: {
		Name:     "Science (PCM/PCB)",
		Subjects: []string{"Physics", "Chemistry", "Mathematics", "Biology"},
		Careers:  []string{"Doctor", "Research scientist", "Engineer", "Pharmacist"},
	},
	TraitCommerce: {
		Name:     "Commerce",
		Subjects: []string{"Accountancy", "Business Studies", "Economics", "Mathematics"},
		Careers:  []string{"Chartered accountant", "Financial analyst", "Entrepreneur", "Banker"},
	},
	TraitArts: {
		Name:     "Humanities",
		Subjects: []string{"History", "Political Science", "Psychology", "Literature"},
		Careers:  []string{"Designer", "Journalist", "Lawyer", "Psychologist"},
	},
	TraitTechnology: {
		Name:     "Computer Science",
		Subjects: []string{"Computer Science", "Mathematics", "Physics"},
		Careers:  []string{"Software engineer", "Data scientist", "Product manager", "Security analyst"},
	},
}

// StreamFor returns the stream for a trait, or a general stream when the
// trait has no entry.
func StreamFor(trait string) Stream {
	if s, ok := Streams[trait]; ok {
		return s
	}
	return Stream{
		Name:     "General studies",
		Subjects: []string{"English", "Mathematics", "Social Studies"},
		Careers:  []string{"Explore internships across fields"},
	}
}
