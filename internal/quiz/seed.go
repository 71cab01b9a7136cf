package quiz

// Trait names used by the seed bank.
const (
	TraitScience    = "science"
	TraitCommerce   = "commerce"
	TraitArts       = "arts"
	TraitTechnology = "technology"
)

// DefaultTraits lists the traits every seed result reports.
var DefaultTraits = []string{TraitArts, TraitCommerce, TraitScience, TraitTechnology}

// seedQuestions is the built-in question bank used when no bank file or
// stored bank is available. 8 questions across 4 categories.
var seedQuestions = []Question{
	// Interests (3)
	{
		ID:       "int-weekend",
		Category: CategoryInterests,
		Prompt:   "How would you most like to spend a free weekend?",
		Options: []AnswerOption{
			{ID: "lab", Label: "Doing experiments or watching science documentaries", Weights: map[string]int{TraitScience: 3, TraitTechnology: 1}},
			{ID: "market", Label: "Running a stall or planning a small business", Weights: map[string]int{TraitCommerce: 3}},
			{ID: "studio", Label: "Drawing, writing or playing music", Weights: map[string]int{TraitArts: 3}},
			{ID: "code", Label: "Building an app or a game", Weights: map[string]int{TraitTechnology: 3, TraitScience: 1}},
		},
	},
	{
		ID:       "int-subjects",
		Category: CategoryInterests,
		Prompt:   "Which school subjects do you enjoy? Pick all that apply.",
		Options: []AnswerOption{
			{ID: "physics", Label: "Physics", Weights: map[string]int{TraitScience: 2, TraitTechnology: 1}},
			{ID: "biology", Label: "Biology", Weights: map[string]int{TraitScience: 2}},
			{ID: "accounts", Label: "Accountancy", Weights: map[string]int{TraitCommerce: 2}},
			{ID: "economics", Label: "Economics", Weights: map[string]int{TraitCommerce: 2, TraitArts: 1}},
			{ID: "history", Label: "History", Weights: map[string]int{TraitArts: 2}},
			{ID: "computers", Label: "Computer science", Weights: map[string]int{TraitTechnology: 2}},
		},
	},
	{
		ID:       "int-news",
		Category: CategoryInterests,
		Prompt:   "Which news section do you open first?",
		Options: []AnswerOption{
			{ID: "science", Label: "Science and health", Weights: map[string]int{TraitScience: 2}},
			{ID: "business", Label: "Business and markets", Weights: map[string]int{TraitCommerce: 2}},
			{ID: "culture", Label: "Culture and books", Weights: map[string]int{TraitArts: 2}},
			{ID: "gadgets", Label: "Gadgets and startups", Weights: map[string]int{TraitTechnology: 2, TraitCommerce: 1}},
		},
	},

	// Aptitude (2)
	{
		ID:       "apt-puzzle",
		Category: CategoryAptitude,
		Prompt:   "Which kind of problem do you solve fastest?",
		Options: []AnswerOption{
			{ID: "numbers", Label: "Number and logic puzzles", Weights: map[string]int{TraitScience: 2, TraitCommerce: 1}},
			{ID: "words", Label: "Word games and riddles", Weights: map[string]int{TraitArts: 2}},
			{ID: "patterns", Label: "Spotting patterns in data", Weights: map[string]int{TraitTechnology: 2, TraitCommerce: 1}},
			{ID: "hands-on", Label: "Fixing or assembling things", Weights: map[string]int{TraitScience: 1, TraitTechnology: 2}},
		},
	},
	{
		ID:       "apt-project",
		Category: CategoryAptitude,
		Prompt:   "In a group project, which task do you pick?",
		Options: []AnswerOption{
			{ID: "research", Label: "Researching the facts", Weights: map[string]int{TraitScience: 2}},
			{ID: "budget", Label: "Managing the budget and timeline", Weights: map[string]int{TraitCommerce: 2}},
			{ID: "design", Label: "Designing the presentation", Weights: map[string]int{TraitArts: 2}},
			{ID: "tools", Label: "Setting up the software and tools", Weights: map[string]int{TraitTechnology: 2}},
		},
	},

	// Personality (2)
	{
		ID:       "per-decide",
		Category: CategoryPersonality,
		Prompt:   "How do you usually make decisions?",
		Options: []AnswerOption{
			{ID: "evidence", Label: "I look for evidence first", Weights: map[string]int{TraitScience: 1, TraitTechnology: 1}},
			{ID: "tradeoffs", Label: "I weigh costs and benefits", Weights: map[string]int{TraitCommerce: 2}},
			{ID: "feeling", Label: "I go with how it feels", Weights: map[string]int{TraitArts: 2}},
		},
	},
	{
		ID:       "per-team",
		Category: CategoryPersonality,
		Prompt:   "What role do you play among friends?",
		Options: []AnswerOption{
			{ID: "organiser", Label: "The organiser", Weights: map[string]int{TraitCommerce: 2}},
			{ID: "storyteller", Label: "The storyteller", Weights: map[string]int{TraitArts: 2}},
			{ID: "fixer", Label: "The one who fixes phones and laptops", Weights: map[string]int{TraitTechnology: 2}},
			{ID: "curious", Label: "The one asking why", Weights: map[string]int{TraitScience: 2}},
		},
	},

	// Values (1)
	{
		ID:       "val-future",
		Category: CategoryValues,
		Prompt:   "What matters most in your future work?",
		Options: []AnswerOption{
			{ID: "discover", Label: "Discovering how the world works", Weights: map[string]int{TraitScience: 3}},
			{ID: "wealth", Label: "Building wealth and organisations", Weights: map[string]int{TraitCommerce: 3}},
			{ID: "expression", Label: "Expressing ideas and influencing culture", Weights: map[string]int{TraitArts: 3}},
			{ID: "build", Label: "Building products people use", Weights: map[string]int{TraitTechnology: 3}},
		},
	},
}

// DefaultQuestions returns a copy of the built-in question bank.
func DefaultQuestions() []Question {
	out := make([]Question, len(seedQuestions))
	copy(out, seedQuestions)
	return out
}

// DefaultBank returns the validated built-in bank.
func DefaultBank() *MemoryBank {
	b, err := NewBank(DefaultQuestions(), DefaultTraits...)
	if err != nil {
		// The seed is static; a failure here is a programming error.
		panic(err)
	}
	return b
}
