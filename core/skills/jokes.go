package skills

import "math/rand"

// jokes is a small canned collection in the classic programmer one-liner
// style.
var jokes = []string{
	"There are only 10 kinds of people in this world: those who know binary and those who don't.",
	"A programmer's wife tells him: 'Go to the store and get a loaf of bread. If they have eggs, get a dozen.' He comes home with 12 loaves of bread.",
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"A SQL query walks into a bar, goes up to two tables and asks: 'Can I join you?'",
	"How many programmers does it take to change a light bulb? None, that's a hardware problem.",
	"There are two hard things in computer science: cache invalidation, naming things, and off-by-one errors.",
	"I would tell you a UDP joke, but you might not get it.",
	"Why did the programmer quit their job? Because they didn't get arrays.",
	"A byte walks into a bar looking miserable. The bartender asks: 'What's wrong?' The byte replies: 'Parity error.' The bartender nods: 'I thought you looked a bit off.'",
	"Knock knock. Who's there? Very long pause... Java.",
}

// PickJoke returns a random joke from the canned collection.
func PickJoke() string {
	return jokes[rand.Intn(len(jokes))]
}
