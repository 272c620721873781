package learning

import (
	"fmt"
	"strings"

	"github.com/ashureev/wordchat/internal/domain"
)

// PracticeMarker ends a lesson reply. It is stripped before text reaches the client.
const PracticeMarker = "[WORD_SCRAMBLE]"

// TeachingScript frames a lesson for the chat handle: introduce the word,
// confirm understanding, ask the comprehension question, judge the answer,
// then announce the practice puzzle.
func TeachingScript(game *domain.WordGame, userPrompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The learner said: %q\n", userPrompt)
	b.WriteString("Act as a friendly vocabulary tutor and run this lesson in one reply:\n")
	fmt.Fprintf(&b, "1. Introduce the word %q (%s). Definition: %s\n", game.Word, game.PartOfSpeech, game.Definition)
	fmt.Fprintf(&b, "   Example: %s\n", game.Example)
	b.WriteString("2. Check the learner understood with one short sentence in your own words.\n")
	fmt.Fprintf(&b, "3. Ask this question: %s\n", game.ComprehensionQuestion)
	writeOptions(&b, game.Options)
	fmt.Fprintf(&b, "4. Explain why %q is the right answer.\n", game.CorrectAnswer)
	b.WriteString("5. Tell the learner it is time to practice by unscrambling a sentence.\n")
	fmt.Fprintf(&b, "Finish with %s on its own line.", PracticeMarker)
	return b.String()
}

// ContinuationScript frames a turn that arrives while a lesson is still
// waiting for its practice puzzle.
func ContinuationScript(game *domain.WordGame, userPrompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "We are in the middle of a lesson about the word %q.\n", game.Word)
	fmt.Fprintf(&b, "The learner replied: %q\n", userPrompt)
	fmt.Fprintf(&b, "Respond to them briefly. If they answered the question, the correct answer is %q.\n", game.CorrectAnswer)
	b.WriteString("Then tell them it is time to practice by unscrambling a sentence.\n")
	fmt.Fprintf(&b, "Finish with %s on its own line.", PracticeMarker)
	return b.String()
}

func writeOptions(b *strings.Builder, options []string) {
	for i, o := range options {
		fmt.Fprintf(b, "   %c) %s\n", 'A'+rune(i), o)
	}
}
