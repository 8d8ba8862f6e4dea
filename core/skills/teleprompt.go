package skills

import (
	"io"
	"math/rand"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// scripts are read aloud by new users to bootstrap their voice samples.
var scripts = []string{
	"The sweet scent of a rose is simply enchanting.",
	"The ship sailed gracefully across the calm sea.",
	"The cozy cabin nestled in the woods was the perfect retreat.",
	"The tangy taste of grapefruit is a refreshing way to start the day.",
	"The Netherlands is known for its picturesque windmills and colorful tulip fields.",
	"Autonomous agents, such as robots and drones, have the potential to revolutionize a wide range of industries, " +
		"from transportation and logistics to healthcare and manufacturing, with their ability to perform tasks and " +
		"make decisions independently, without human intervention, they can increase efficiency, reduce costs, and " +
		"improve safety in a variety of settings.",
	"Swarm intelligence is a fascinating concept that explores the collective behavior of decentralized, " +
		"self-organized systems, such as flocks of birds, schools of fish, or swarms of insects, where individual " +
		"agents interact with their environment and each other to create emergent patterns and behaviors that are " +
		"greater than the sum of their parts.",
	"The humble teaspoon may seem like a small and insignificant utensil, but its importance in the kitchen and at " +
		"the dining table cannot be overstated, whether we're measuring out ingredients for a recipe, stirring a cup " +
		"of tea or coffee, or enjoying a delicious dessert, the teaspoon is an essential tool that adds a touch of " +
		"elegance and refinement to our daily routines.",
	"An umbrella may seem like a simple and unassuming accessory, but its ability to shield us from the elements " +
		"and keep us dry in even the heaviest of downpours is nothing short of miraculous, whether we're rushing to " +
		"work on a rainy Monday morning or taking a leisurely stroll on a drizzly afternoon, the trusty umbrella is " +
		"there to protect us from the rain and make our journey a little more comfortable.",
	"As I look out of my window on this brisk autumn day, with the leaves falling gently to the ground and the sun " +
		"setting in a spectacular display of orange and pink hues, I can't help but feel a sense of gratitude for " +
		"the beauty of nature and the simple joys that life has to offer.",
	"As I stand here on the sandy beach, feeling the warm sun on my face and the cool ocean breeze in my hair, I " +
		"gaze out over the seemingly endless expanse of sparkling blue water before me, watching as the waves rise " +
		"and fall with a hypnotic rhythm, each one a unique masterpiece of foam and spray that crashes against the " +
		"shore with a roar that echoes across the horizon.",
}

const telepromptWidth = 72

var telepromptStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(1, 2)

// Teleprompter renders reading scripts to the terminal during voice
// bootstrap.
type Teleprompter struct {
	out  io.Writer
	pick func() string
}

type TeleprompterOption func(*Teleprompter)

// WithScriptPicker overrides the script source, for tests.
func WithScriptPicker(pick func() string) TeleprompterOption {
	return func(t *Teleprompter) { t.pick = pick }
}

func NewTeleprompter(out io.Writer, opts ...TeleprompterOption) *Teleprompter {
	teleprompter := &Teleprompter{
		out: out,
		pick: func() string {
			return scripts[rand.Intn(len(scripts))]
		},
	}
	for _, opt := range opts {
		opt(teleprompter)
	}
	return teleprompter
}

// DisplayScript prints one script for the user to read aloud and returns
// its text.
func (t *Teleprompter) DisplayScript() string {
	script := t.pick()
	rendered := telepromptStyle.Render(wordwrap.String(script, telepromptWidth))
	io.WriteString(t.out, rendered+"\n")
	return script
}
