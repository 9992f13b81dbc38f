// Package uitext holds the user-facing copy shared by the web page, the
// terminal chat and the CLI.
package uitext

const (
	Title         = "🏟️⚽ Game On: Exploring the Power, Progress, and Future of Sports 🏀🏆"
	Welcome       = "🏟️ Welcome to Sports Central!"
	Subtitle      = "Your interactive sports knowledge assistant"
	Intro         = "📚 Have a question about sports? 🤔 Dive into the topics below and ask anything about training, youth development, national identity, mega-events, or the digital future of sports!"
	InputLabel    = "🤔 What’s on your mind about sports? Ask away!"
	Button        = "🏁 Ready, Set, Answer!"
	Spinner       = "🏃‍♂️ Analyzing game data..."
	AnswerHeading = "📣 Answer:"
	Success       = "🎯 Found a solid sports answer for you!"
	Tip           = "📣 Tip: Try asking about a specific sport, trend, or industry shift."
	EmptyWarning  = "⚠️ Please enter a question!"
	HelpTitle     = "📘 How to Use This Sports Q&A App"
)

// Topics lists the subjects the built-in corpus covers.
var Topics = []string{
	"Athlete training",
	"Youth sports",
	"National identity in sports",
	"Sports economics",
	"Digital innovation in sports",
}

// HelpSteps are the numbered usage instructions after the topic list.
var HelpSteps = []string{
	"Type a question based on any of the topics.",
	"Click '" + Button + "' (or your chosen button).",
	"Review the system’s response and explore further!",
}

// Examples are sample questions answerable from the corpus.
var Examples = []string{
	"How has technology changed athlete performance?",
	"What role does youth sport play in education?",
	"Are major sporting events economically beneficial?",
	"How is social media influencing the sports industry?",
}
